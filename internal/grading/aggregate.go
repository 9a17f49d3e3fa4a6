// Package grading holds the pure arithmetic of grade aggregation: weighted category
// means, weighted totals, class ranking and attendance credit. It performs no I/O.
package grading

import (
	"errors"
	"math"
	"sort"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

var (
	// ErrNoCategories is returned when a class has no grade categories to aggregate.
	ErrNoCategories = errors.New("grading: no categories configured")
	// ErrNoSessions is returned when attendance is scored for a class without sessions.
	ErrNoSessions = errors.New("grading: no attendance sessions recorded")
)

// Scores maps a grade item id to a student's percentage on it. A missing key means
// the item has not been graded yet, which is different from a zero.
type Scores map[string]float64

// Standing is one student's computed position in a class.
type Standing struct {
	StudentID      string
	Total          float64
	Categories     []models.CategoryScore
	Rank           int
	RankPercentage float64
}

// Round2 rounds half to even at two decimals.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// ItemWeight is the weight an item carries inside its category. Unset or zero counts as 1.
func ItemWeight(item models.GradeItem) float64 {
	if item.Weight == nil || *item.Weight == 0 {
		return 1
	}
	return *item.Weight
}

// CategoryScore is the weighted mean of the student's percentages over the category's
// scored items. Items without a score add to neither side of the ratio; a category with
// no scored items yields 0.
func CategoryScore(category models.GradeCategory, scores Scores) float64 {
	var numerator, denominator float64
	for _, item := range category.Items {
		pct, ok := scores[item.ID]
		if !ok {
			continue
		}
		w := ItemWeight(item)
		numerator += pct * w
		denominator += w
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// TotalScore sums category scores scaled by category weight / 100. Category weights are
// used as given, without normalising to 100. The breakdown keeps category order and full
// precision.
func TotalScore(categories []models.GradeCategory, scores Scores) (float64, []models.CategoryScore) {
	var total float64
	breakdown := make([]models.CategoryScore, 0, len(categories))
	for _, category := range categories {
		score := CategoryScore(category, scores)
		total += score * category.Weight / 100
		breakdown = append(breakdown, models.CategoryScore{
			CategoryID: category.ID,
			Name:       category.Name,
			Weight:     category.Weight,
			Score:      score,
		})
	}
	return total, breakdown
}

// Snapshot rounds a breakdown for storage.
func Snapshot(breakdown []models.CategoryScore) models.CategoryScores {
	out := make(models.CategoryScores, len(breakdown))
	for i, entry := range breakdown {
		entry.Score = Round2(entry.Score)
		out[i] = entry
	}
	return out
}

// RankClass computes and ranks every student. studentIDs must be in enrollment order,
// which settles ties: equal totals get consecutive ranks in that order.
func RankClass(categories []models.GradeCategory, studentIDs []string, scores map[string]Scores) ([]Standing, error) {
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}
	standings := make([]Standing, len(studentIDs))
	for i, id := range studentIDs {
		total, breakdown := TotalScore(categories, scores[id])
		standings[i] = Standing{StudentID: id, Total: total, Categories: breakdown}
	}
	AssignRanks(standings)
	return standings, nil
}

// AssignRanks stable-sorts standings by total descending and fills Rank and RankPercentage.
func AssignRanks(standings []Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Total > standings[j].Total
	})
	n := float64(len(standings))
	for i := range standings {
		standings[i].Rank = i + 1
		standings[i].RankPercentage = Round2(float64(i+1) / n * 100)
	}
}

// Percentage converts a raw score to a 0-100 percentage. A non-positive max yields 0.
func Percentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return score / maxScore * 100
}

// AttendancePercentage credits present sessions fully and late sessions by lateCredit,
// over all sessions held for the class. The result is always on the 0-100 scale.
func AttendancePercentage(tally models.AttendanceTally, sessions int, lateCredit float64) (float64, error) {
	if sessions <= 0 {
		return 0, ErrNoSessions
	}
	credited := float64(tally.Present) + float64(tally.Late)*lateCredit
	return credited / float64(sessions) * 100, nil
}
