package grading

import (
	"math"
	"math/rand"
	"sort"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

func weight(v float64) *float64 { return &v }

func category(id string, w float64, items ...models.GradeItem) models.GradeCategory {
	return models.GradeCategory{ID: id, Name: id, Weight: w, Items: items}
}

func item(id string, w *float64) models.GradeItem {
	return models.GradeItem{ID: id, Weight: w, MaxScore: 100}
}

func TestCategoryScoreWithoutItemsIsZero(t *testing.T) {
	assert.Zero(t, CategoryScore(category("empty", 40), Scores{"other": 100}))
}

func TestCategoryScoreSkipsUngradedItems(t *testing.T) {
	c := category("homework", 100, item("hw1", weight(10)), item("hw2", weight(10)))

	assert.Equal(t, 80.0, CategoryScore(c, Scores{"hw1": 80}))
	assert.Zero(t, CategoryScore(c, Scores{}))
}

func TestCategoryScoreTreatsMissingWeightAsOne(t *testing.T) {
	c := category("quiz", 100, item("q1", nil), item("q2", weight(0)), item("q3", weight(2)))

	got := CategoryScore(c, Scores{"q1": 100, "q2": 40, "q3": 70})

	assert.InDelta(t, (100+40+140)/4.0, got, 1e-9)
}

func TestTotalScoreUsesCategoryWeightsLiterally(t *testing.T) {
	categories := []models.GradeCategory{
		category("a", 50, item("a1", nil)),
		category("b", 30, item("b1", nil)),
	}

	total, breakdown := TotalScore(categories, Scores{"a1": 100, "b1": 100})

	assert.InDelta(t, 80.0, total, 1e-9)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "a", breakdown[0].CategoryID)
	assert.Equal(t, 100.0, breakdown[1].Score)
}

func TestSnapshotRoundsScores(t *testing.T) {
	snap := Snapshot([]models.CategoryScore{{CategoryID: "a", Score: 2.0 / 3.0 * 100}})
	assert.Equal(t, 66.67, snap[0].Score)
}

func TestRankClassOrdersByTotalWithEnrollmentTieBreak(t *testing.T) {
	categories := []models.GradeCategory{category("homework", 100, item("hw", nil))}
	scores := map[string]Scores{
		"s1": {"hw": 90},
		"s2": {"hw": 70},
		"s3": {"hw": 70},
	}

	standings, err := RankClass(categories, []string{"s1", "s2", "s3"}, scores)
	require.NoError(t, err)
	require.Len(t, standings, 3)

	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{standings[0].StudentID, standings[1].StudentID, standings[2].StudentID})
	assert.Equal(t, []float64{90, 70, 70}, []float64{standings[0].Total, standings[1].Total, standings[2].Total})
	assert.Equal(t, []int{1, 2, 3}, []int{standings[0].Rank, standings[1].Rank, standings[2].Rank})
	assert.Equal(t, []float64{33.33, 66.67, 100}, []float64{standings[0].RankPercentage, standings[1].RankPercentage, standings[2].RankPercentage})
}

func TestRankClassTieKeepsEnrollmentOrderWhenLaterStudentScoresHigher(t *testing.T) {
	categories := []models.GradeCategory{category("exam", 100, item("e", nil))}
	scores := map[string]Scores{"s1": {"e": 50}, "s2": {"e": 50}, "s3": {"e": 99}}

	standings, err := RankClass(categories, []string{"s1", "s2", "s3"}, scores)
	require.NoError(t, err)

	assert.Equal(t, "s3", standings[0].StudentID)
	assert.Equal(t, "s1", standings[1].StudentID)
	assert.Equal(t, "s2", standings[2].StudentID)
}

func TestRankClassStudentWithoutScoresTotalsZero(t *testing.T) {
	categories := []models.GradeCategory{category("exam", 100, item("e", nil))}

	standings, err := RankClass(categories, []string{"s1", "s2"}, map[string]Scores{"s2": {"e": 10}})
	require.NoError(t, err)

	assert.Equal(t, "s2", standings[0].StudentID)
	assert.Zero(t, standings[1].Total)
}

func TestRankClassRequiresCategories(t *testing.T) {
	_, err := RankClass(nil, []string{"s1"}, nil)
	assert.ErrorIs(t, err, ErrNoCategories)
}

func TestRankClassEmptyRoster(t *testing.T) {
	standings, err := RankClass([]models.GradeCategory{category("a", 100)}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, standings)
}

func TestAttendancePercentage(t *testing.T) {
	got, err := AttendancePercentage(models.AttendanceTally{Present: 2, Late: 1}, 4, DefaultLateCredit)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, got, 1e-9)

	none, err := AttendancePercentage(models.AttendanceTally{}, 4, DefaultLateCredit)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestAttendancePercentageWithoutSessions(t *testing.T) {
	_, err := AttendancePercentage(models.AttendanceTally{Present: 1}, 0, DefaultLateCredit)
	assert.ErrorIs(t, err, ErrNoSessions)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 45.0, Percentage(9, 20))
	assert.Zero(t, Percentage(9, 0))
}

// randomClass builds categories, a roster and sparse scores from a seed.
func randomClass(seed int64) ([]models.GradeCategory, []string, map[string]Scores) {
	rng := rand.New(rand.NewSource(seed))
	categories := make([]models.GradeCategory, 1+rng.Intn(4))
	itemCounter := 0
	var itemIDs []string
	for i := range categories {
		c := models.GradeCategory{ID: string(rune('a' + i)), Weight: float64(rng.Intn(101))}
		for n := rng.Intn(4); n > 0; n-- {
			itemCounter++
			id := string(rune('A' + itemCounter))
			var w *float64
			if rng.Intn(3) > 0 {
				w = weight(float64(rng.Intn(5)))
			}
			c.Items = append(c.Items, models.GradeItem{ID: id, Weight: w})
			itemIDs = append(itemIDs, id)
		}
		categories[i] = c
	}
	students := make([]string, rng.Intn(12))
	scores := make(map[string]Scores, len(students))
	for i := range students {
		students[i] = string(rune('m' + i))
		s := Scores{}
		for _, id := range itemIDs {
			if rng.Intn(4) > 0 {
				s[id] = float64(rng.Intn(10001)) / 100
			}
		}
		scores[students[i]] = s
	}
	return categories, students, scores
}

func naiveTotal(categories []models.GradeCategory, scores Scores) float64 {
	var total float64
	for _, c := range categories {
		var num, den float64
		for _, it := range c.Items {
			if pct, ok := scores[it.ID]; ok {
				w := 1.0
				if it.Weight != nil && *it.Weight != 0 {
					w = *it.Weight
				}
				num += pct * w
				den += w
			}
		}
		if den > 0 {
			total += num / den * c.Weight / 100
		}
	}
	return total
}

func TestTotalScoreMatchesWeightedSumProperty(t *testing.T) {
	property := func(seed int64) bool {
		categories, students, scores := randomClass(seed)
		for _, id := range students {
			total, _ := TotalScore(categories, scores[id])
			if math.Abs(total-naiveTotal(categories, scores[id])) > 1e-9 {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 300}))
}

func TestRanksFormPermutationProperty(t *testing.T) {
	property := func(seed int64) bool {
		categories, students, scores := randomClass(seed)
		standings, err := RankClass(categories, students, scores)
		if err != nil || len(standings) != len(students) {
			return false
		}
		ranks := make([]int, len(standings))
		for i, s := range standings {
			ranks[i] = s.Rank
			if i > 0 && standings[i-1].Total < s.Total {
				return false
			}
		}
		sort.Ints(ranks)
		for i, r := range ranks {
			if r != i+1 {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 300}))
}

func TestRankClassIsDeterministic(t *testing.T) {
	categories, students, scores := randomClass(42)
	first, err := RankClass(categories, students, scores)
	require.NoError(t, err)
	second, err := RankClass(categories, students, scores)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
