package grading

// DefaultLateCredit is the share of a present mark granted for a late check-in.
const DefaultLateCredit = 0.8

// Default report thresholds on the 0-100 scale.
const (
	DefaultPassMark      = 60.0
	DefaultExcellentMark = 85.0
)

// Distribution bucket labels, highest first.
var BucketLabels = []string{"90-100", "80-89", "70-79", "60-69", "0-59"}

// LetterGrade maps a total score to A-F.
func LetterGrade(total float64) string {
	switch {
	case total >= 90:
		return "A"
	case total >= 80:
		return "B"
	case total >= 70:
		return "C"
	case total >= 60:
		return "D"
	default:
		return "F"
	}
}

// Bucket returns the distribution label a total falls into.
func Bucket(total float64) string {
	switch {
	case total >= 90:
		return BucketLabels[0]
	case total >= 80:
		return BucketLabels[1]
	case total >= 70:
		return BucketLabels[2]
	case total >= 60:
		return BucketLabels[3]
	default:
		return BucketLabels[4]
	}
}

// Summary aggregates a class's totals.
type Summary struct {
	Count         int
	Average       float64
	Highest       float64
	Lowest        float64
	PassRate      float64
	ExcellentRate float64
	Distribution  map[string]int
}

// Summarize computes the summary of totals. Rates are percentages rounded to 2 decimals.
func Summarize(totals []float64, passMark, excellentMark float64) Summary {
	summary := Summary{Distribution: make(map[string]int, len(BucketLabels))}
	for _, label := range BucketLabels {
		summary.Distribution[label] = 0
	}
	if len(totals) == 0 {
		return summary
	}

	var sum float64
	var passed, excellent int
	summary.Highest, summary.Lowest = totals[0], totals[0]
	for _, total := range totals {
		sum += total
		if total > summary.Highest {
			summary.Highest = total
		}
		if total < summary.Lowest {
			summary.Lowest = total
		}
		if total >= passMark {
			passed++
		}
		if total >= excellentMark {
			excellent++
		}
		summary.Distribution[Bucket(total)]++
	}

	n := float64(len(totals))
	summary.Count = len(totals)
	summary.Average = Round2(sum / n)
	summary.Highest = Round2(summary.Highest)
	summary.Lowest = Round2(summary.Lowest)
	summary.PassRate = Round2(float64(passed) / n * 100)
	summary.ExcellentRate = Round2(float64(excellent) / n * 100)
	return summary
}
