package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/internal/grading"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
)

// Score sources recorded in metrics.
const (
	scoreSourceManual     = "manual"
	scoreSourceAttendance = "attendance"
)

// GradeScoreService handles per-item score entry and listings.
type GradeScoreService struct {
	items     gradeItemStore
	scores    gradeScoreStore
	roster    rosterReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeScoreService constructs service.
func NewGradeScoreService(stores GradingStores, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeScoreService{
		items:     stores.Items,
		scores:    stores.Scores,
		roster:    stores.Roster,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// ListItemScores returns the item's score sheet over the class's active roster.
func (s *GradeScoreService) ListItemScores(ctx context.Context, itemID string) (*dto.ItemScoresResponse, error) {
	item, err := findGradeItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}
	students, err := s.roster.ListActiveStudents(ctx, item.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	scores, err := s.scores.ListByItem(ctx, item.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	byStudent := make(map[string]models.StudentGradeScore, len(scores))
	for _, score := range scores {
		byStudent[score.StudentID] = score
	}

	rows := make([]dto.RosterScore, 0, len(students))
	for _, student := range students {
		row := dto.RosterScore{
			StudentID:   student.StudentID,
			StudentNo:   student.StudentNo,
			StudentName: student.StudentName,
		}
		if score, ok := byStudent[student.StudentID]; ok {
			row.Score = score.Score
			row.Percentage = score.Percentage
			row.Remarks = score.Remarks
		}
		rows = append(rows, row)
	}
	return &dto.ItemScoresResponse{Item: *item, Scores: rows}, nil
}

// BatchUpsertScores writes every entry carrying a score in one transaction. Entries
// without a score are skipped; any student outside the active roster rejects the batch.
func (s *GradeScoreService) BatchUpsertScores(ctx context.Context, itemID string, req dto.BatchScoresRequest, actor string) (*dto.BatchScoresResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scores payload")
	}
	item, err := findGradeItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}
	students, err := s.roster.ListActiveStudents(ctx, item.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	active := make(map[string]struct{}, len(students))
	for _, student := range students {
		active[student.StudentID] = struct{}{}
	}

	result := &dto.BatchScoresResult{}
	records := make([]models.StudentGradeScore, 0, len(req.Scores))
	for _, entry := range req.Scores {
		if entry.Score == nil {
			result.Skipped++
			continue
		}
		if _, ok := active[entry.StudentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not actively enrolled in the class", entry.StudentID))
		}
		records = append(records, buildScore(item, entry, actor))
	}

	if err := s.scores.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save scores")
	}
	result.Saved = len(records)
	s.metrics.AddScoresWritten(scoreSourceManual, result.Saved)
	if result.Saved > 0 {
		s.cache.InvalidateClass(ctx, item.ClassID)
	}
	s.logger.Info("grade scores saved",
		zap.String("item_id", item.ID),
		zap.Int("saved", result.Saved),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// UpsertScore writes a single student's score for the item.
func (s *GradeScoreService) UpsertScore(ctx context.Context, itemID string, entry dto.ScoreEntry, actor string) (*models.StudentGradeScore, error) {
	if err := s.validator.Struct(entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	if entry.Score == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score is required")
	}
	item, err := findGradeItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}
	active, err := s.roster.IsActive(ctx, item.ClassID, entry.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not actively enrolled in the class")
	}

	record := buildScore(item, entry, actor)
	if err := s.scores.Upsert(ctx, &record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save score")
	}
	s.metrics.AddScoresWritten(scoreSourceManual, 1)
	s.cache.InvalidateClass(ctx, item.ClassID)
	return &record, nil
}

// StudentScores lists every item of the class with the student's score, if any.
func (s *GradeScoreService) StudentScores(ctx context.Context, classID, studentID string) ([]dto.StudentItemScore, error) {
	if strings.TrimSpace(classID) == "" || strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id and student id are required")
	}
	items, err := s.items.List(ctx, models.GradeItemFilter{ClassID: classID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade items")
	}
	scores, err := s.scores.ListByStudent(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student scores")
	}
	return joinStudentScores(items, scores), nil
}

func joinStudentScores(items []models.GradeItem, scores []models.StudentGradeScore) []dto.StudentItemScore {
	byItem := make(map[string]models.StudentGradeScore, len(scores))
	for _, score := range scores {
		byItem[score.GradeItemID] = score
	}
	out := make([]dto.StudentItemScore, 0, len(items))
	for _, item := range items {
		row := dto.StudentItemScore{Item: item}
		if score, ok := byItem[item.ID]; ok {
			gradedAt := score.GradedAt
			row.Score = score.Score
			row.Percentage = score.Percentage
			row.Remarks = score.Remarks
			row.GradedAt = &gradedAt
		}
		out = append(out, row)
	}
	return out
}

func buildScore(item *models.GradeItem, entry dto.ScoreEntry, actor string) models.StudentGradeScore {
	value := *entry.Score
	pct := grading.Percentage(value, item.MaxScore)
	record := models.StudentGradeScore{
		GradeItemID: item.ID,
		StudentID:   entry.StudentID,
		Score:       &value,
		Percentage:  &pct,
		Remarks:     entry.Remarks,
	}
	if actor != "" {
		record.GradedBy = &actor
	}
	return record
}
