package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterGrade(t *testing.T) {
	cases := map[float64]string{100: "A", 90: "A", 89.99: "B", 80: "B", 75: "C", 60: "D", 59.99: "F", 0: "F"}
	for total, want := range cases {
		assert.Equal(t, want, LetterGrade(total), "total %v", total)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{95, 85, 72, 60, 40}, DefaultPassMark, DefaultExcellentMark)

	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 70.4, s.Average)
	assert.Equal(t, 95.0, s.Highest)
	assert.Equal(t, 40.0, s.Lowest)
	assert.Equal(t, 80.0, s.PassRate)
	assert.Equal(t, 40.0, s.ExcellentRate)
	for _, label := range BucketLabels {
		assert.Equal(t, 1, s.Distribution[label], label)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, DefaultPassMark, DefaultExcellentMark)

	assert.Zero(t, s.Count)
	assert.Len(t, s.Distribution, len(BucketLabels))
	assert.Zero(t, s.Distribution["90-100"])
}

func TestSummarizeCountsZeroTotals(t *testing.T) {
	s := Summarize([]float64{0, 100}, DefaultPassMark, DefaultExcellentMark)

	assert.Equal(t, 50.0, s.Average)
	assert.Equal(t, 0.0, s.Lowest)
	assert.Equal(t, 1, s.Distribution["0-59"])
	assert.Equal(t, 1, s.Distribution["90-100"])
}
