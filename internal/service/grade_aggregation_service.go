package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/internal/grading"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
	"github.com/noah-isme/teaching-portal-api/pkg/events"
)

type eventDispatcher interface {
	Dispatch(ctx context.Context, event events.Event) error
}

// GradeAggregationService turns configured categories and recorded scores into ranked final grades.
type GradeAggregationService struct {
	categories gradeCategoryStore
	items      gradeItemStore
	scores     gradeScoreStore
	finals     finalGradeStore
	roster     rosterReader
	attendance attendanceReader
	cache      *CacheService
	metrics    *MetricsService
	events     eventDispatcher
	lateCredit float64
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewGradeAggregationService constructs service. A late credit outside [0, 1] falls back to the default.
func NewGradeAggregationService(stores GradingStores, cache *CacheService, metrics *MetricsService, dispatcher eventDispatcher, lateCredit float64, logger *zap.Logger) *GradeAggregationService {
	if lateCredit < 0 || lateCredit > 1 {
		lateCredit = grading.DefaultLateCredit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeAggregationService{
		categories: stores.Categories,
		items:      stores.Items,
		scores:     stores.Scores,
		finals:     stores.Finals,
		roster:     stores.Roster,
		attendance: stores.Attendance,
		cache:      cache,
		metrics:    metrics,
		events:     dispatcher,
		lateCredit: lateCredit,
		logger:     logger,
		tracer:     otel.Tracer("github.com/noah-isme/teaching-portal-api/internal/service/grading"),
		now:        time.Now,
	}
}

// RecomputeClassFinalGrades recomputes and ranks every actively enrolled student of the
// class and replaces the class's final-grade set in one transaction.
func (s *GradeAggregationService) RecomputeClassFinalGrades(ctx context.Context, classID string) (*dto.RecomputeResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "grades.recompute", trace.WithAttributes(attribute.String("class.id", classID)))
	defer span.End()

	categories, err := s.categories.ListByClass(ctx, classID)
	if err != nil {
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade categories")
	}
	if len(categories) == 0 {
		s.metrics.ObserveRecompute(OutcomeNoCategories, 0, time.Since(start))
		span.SetStatus(codes.Error, "no categories configured")
		return nil, appErrors.Clone(appErrors.ErrNoCategoriesConfigured, "class has no grade categories configured")
	}

	students, err := s.roster.ListActiveStudents(ctx, classID)
	if err != nil {
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	scores, err := s.classScores(ctx, classID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	studentIDs := make([]string, len(students))
	for i, student := range students {
		studentIDs[i] = student.StudentID
	}
	standings, err := grading.RankClass(categories, studentIDs, scores)
	if err != nil {
		if errors.Is(err, grading.ErrNoCategories) {
			return nil, appErrors.Clone(appErrors.ErrNoCategoriesConfigured, "class has no grade categories configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank class")
	}

	calculatedAt := s.now().UTC()
	finals := make([]models.StudentFinalGrade, len(standings))
	for i, standing := range standings {
		finals[i] = models.StudentFinalGrade{
			StudentID:      standing.StudentID,
			ClassID:        classID,
			TotalScore:     grading.Round2(standing.Total),
			Rank:           standing.Rank,
			RankPercentage: standing.RankPercentage,
			CategoryScores: grading.Snapshot(standing.Categories),
			CalculatedAt:   calculatedAt,
		}
	}

	if err := s.finals.ReplaceForClass(ctx, classID, finals); err != nil {
		s.metrics.ObserveRecompute(OutcomePersistFailed, len(finals), time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save final grades")
	}

	span.SetAttributes(attribute.Int("class.students", len(finals)))
	s.metrics.ObserveRecompute(OutcomeSuccess, len(finals), time.Since(start))
	s.cache.InvalidateClass(ctx, classID)
	s.dispatch(ctx, events.Event{
		Type:    events.TypeFinalGradesRecomputed,
		ClassID: classID,
		Payload: map[string]interface{}{
			"student_count": len(finals),
			"calculated_at": calculatedAt,
		},
	})
	s.logger.Info("final grades recomputed",
		zap.String("class_id", classID),
		zap.Int("students", len(finals)),
		zap.Duration("duration", time.Since(start)),
	)

	return &dto.RecomputeResult{ClassID: classID, StudentCount: len(finals), FinalGrades: finals}, nil
}

// ComputeAttendanceItemScores scores an attendance item for every active student from the
// class's attendance records and writes all scores in one transaction.
func (s *GradeAggregationService) ComputeAttendanceItemScores(ctx context.Context, itemID, actor string) (*dto.AttendanceScoresResult, error) {
	ctx, span := s.tracer.Start(ctx, "grades.attendance_scores", trace.WithAttributes(attribute.String("grade_item.id", itemID)))
	defer span.End()

	item, err := findGradeItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}
	if item.ItemType != models.GradeItemAttendance {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade item is not an attendance item")
	}

	sessions, err := s.attendance.CountSessions(ctx, item.ClassID)
	if err != nil {
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance sessions")
	}
	if sessions == 0 {
		span.SetStatus(codes.Error, "no attendance recorded")
		return nil, appErrors.Clone(appErrors.ErrNoAttendanceRecorded, "class has no attendance sessions recorded")
	}

	students, err := s.roster.ListActiveStudents(ctx, item.ClassID)
	if err != nil {
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	tallies, err := s.attendance.TallyByClass(ctx, item.ClassID)
	if err != nil {
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tally attendance")
	}

	gradedAt := s.now().UTC()
	result := &dto.AttendanceScoresResult{ItemID: item.ID, TotalSessions: sessions, Scores: make(map[string]float64, len(students))}
	records := make([]models.StudentGradeScore, 0, len(students))
	for _, student := range students {
		tally := tallies[student.StudentID]
		pct, err := grading.AttendancePercentage(tally, sessions, s.lateCredit)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrNoAttendanceRecorded, "class has no attendance sessions recorded")
		}
		score, percentage := pct, pct
		record := models.StudentGradeScore{
			GradeItemID: item.ID,
			StudentID:   student.StudentID,
			Score:       &score,
			Percentage:  &percentage,
			GradedAt:    gradedAt,
		}
		if actor != "" {
			record.GradedBy = &actor
		}
		records = append(records, record)
		result.Scores[student.StudentID] = pct
	}

	if err := s.scores.BulkUpsert(ctx, records); err != nil {
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance scores")
	}

	s.metrics.AddScoresWritten(scoreSourceAttendance, len(records))
	s.cache.InvalidateClass(ctx, item.ClassID)
	s.dispatch(ctx, events.Event{
		Type:    events.TypeAttendanceScored,
		ClassID: item.ClassID,
		ActorID: actor,
		Payload: map[string]interface{}{
			"item_id":        item.ID,
			"total_sessions": sessions,
			"students":       len(records),
		},
	})
	return result, nil
}

func (s *GradeAggregationService) classScores(ctx context.Context, classID string) (map[string]grading.Scores, error) {
	rows, err := s.scores.PercentagesByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class scores")
	}
	return groupPercentages(rows), nil
}

func groupPercentages(rows []models.ItemPercentage) map[string]grading.Scores {
	out := make(map[string]grading.Scores)
	for _, row := range rows {
		scores, ok := out[row.StudentID]
		if !ok {
			scores = make(grading.Scores)
			out[row.StudentID] = scores
		}
		scores[row.GradeItemID] = row.Percentage
	}
	return out
}

func (s *GradeAggregationService) dispatch(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Dispatch(ctx, event); err != nil {
		s.logger.Warn("grade event not queued", zap.String("type", event.Type), zap.String("class_id", event.ClassID), zap.Error(err))
	}
}
