package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/internal/grading"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
	"github.com/noah-isme/teaching-portal-api/pkg/events"
	"github.com/noah-isme/teaching-portal-api/pkg/export"
)

type datasetRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ReportOptions tunes report thresholds and caching.
type ReportOptions struct {
	PassMark      float64
	ExcellentMark float64
	CacheTTL      time.Duration
}

// GradeReportService serves the read models built on final grades.
type GradeReportService struct {
	categories gradeCategoryStore
	items      gradeItemStore
	scores     gradeScoreStore
	finals     finalGradeStore
	roster     rosterReader
	cache      *CacheService
	events     eventDispatcher
	renderers  map[string]datasetRenderer
	opts       ReportOptions
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeReportService constructs service with CSV and PDF exporters.
func NewGradeReportService(stores GradingStores, cache *CacheService, dispatcher eventDispatcher, opts ReportOptions, validate *validator.Validate, logger *zap.Logger) *GradeReportService {
	if opts.PassMark <= 0 {
		opts.PassMark = grading.DefaultPassMark
	}
	if opts.ExcellentMark <= 0 {
		opts.ExcellentMark = grading.DefaultExcellentMark
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeReportService{
		categories: stores.Categories,
		items:      stores.Items,
		scores:     stores.Scores,
		finals:     stores.Finals,
		roster:     stores.Roster,
		cache:      cache,
		events:     dispatcher,
		renderers: map[string]datasetRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		opts:      opts,
		validator: validate,
		logger:    logger,
	}
}

// FinalGrades lists the class's final grades in rank order. Before the first recompute the
// active roster is returned with live category scores and no totals or ranks.
func (s *GradeReportService) FinalGrades(ctx context.Context, classID string) (*dto.FinalGradesResponse, error) {
	key := classCacheKey(classID, cacheViewFinalGrades)
	var cached dto.FinalGradesResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	categories, err := s.categories.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade categories")
	}
	rows, err := s.finals.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grades")
	}

	resp := &dto.FinalGradesResponse{ClassID: classID, Categories: categories}
	if len(rows) > 0 {
		resp.IsCalculated = true
		resp.FinalGrades = make([]dto.FinalGradeEntry, len(rows))
		for i, row := range rows {
			resp.FinalGrades[i] = finalGradeEntry(row)
		}
	} else {
		resp.FinalGrades, err = s.liveEntries(ctx, classID, categories)
		if err != nil {
			return nil, err
		}
	}

	_ = s.cache.Set(ctx, key, resp, s.opts.CacheTTL)
	return resp, nil
}

func (s *GradeReportService) liveEntries(ctx context.Context, classID string, categories []models.GradeCategory) ([]dto.FinalGradeEntry, error) {
	students, err := s.roster.ListActiveStudents(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	percentages, err := s.scores.PercentagesByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class scores")
	}
	scores := groupPercentages(percentages)

	entries := make([]dto.FinalGradeEntry, len(students))
	for i, student := range students {
		_, breakdown := grading.TotalScore(categories, scores[student.StudentID])
		entries[i] = dto.FinalGradeEntry{
			StudentID:      student.StudentID,
			StudentNo:      student.StudentNo,
			StudentName:    student.StudentName,
			CategoryScores: grading.Snapshot(breakdown),
		}
	}
	return entries, nil
}

func finalGradeEntry(row models.FinalGradeRow) dto.FinalGradeEntry {
	total := row.TotalScore
	rank := row.Rank
	rankPct := row.RankPercentage
	calculatedAt := row.CalculatedAt
	return dto.FinalGradeEntry{
		StudentID:      row.StudentID,
		StudentNo:      row.StudentNo,
		StudentName:    row.StudentName,
		TotalScore:     &total,
		Rank:           &rank,
		RankPercentage: &rankPct,
		GradeLevel:     grading.LetterGrade(total),
		CategoryScores: row.CategoryScores,
		IsPublished:    row.IsPublished,
		CalculatedAt:   &calculatedAt,
	}
}

// Statistics summarises the class's stored final grades.
func (s *GradeReportService) Statistics(ctx context.Context, classID string) (*dto.GradeStatistics, error) {
	key := classCacheKey(classID, cacheViewStatistics)
	var cached dto.GradeStatistics
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	categories, err := s.categories.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade categories")
	}
	rows, err := s.finals.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grades")
	}

	totals := make([]float64, len(rows))
	rankings := make([]dto.RankingEntry, len(rows))
	for i, row := range rows {
		totals[i] = row.TotalScore
		rankings[i] = dto.RankingEntry{
			Rank:        row.Rank,
			StudentID:   row.StudentID,
			StudentNo:   row.StudentNo,
			StudentName: row.StudentName,
			TotalScore:  row.TotalScore,
		}
	}
	summary := grading.Summarize(totals, s.opts.PassMark, s.opts.ExcellentMark)

	stats := &dto.GradeStatistics{
		ClassID:       classID,
		TotalStudents: summary.Count,
		Average:       summary.Average,
		Highest:       summary.Highest,
		Lowest:        summary.Lowest,
		PassRate:      summary.PassRate,
		ExcellentRate: summary.ExcellentRate,
		Distribution:  summary.Distribution,
		Rankings:      rankings,
		HasData:       len(rows) > 0,
		HasConfig:     len(categories) > 0,
	}
	switch {
	case !stats.HasConfig:
		stats.Message = "no grade categories configured for this class"
	case !stats.HasData:
		stats.Message = "final grades have not been calculated yet"
	}

	_ = s.cache.Set(ctx, key, stats, s.opts.CacheTTL)
	return stats, nil
}

// MyGrades returns the student's published items with scores and, once published, the final grade.
func (s *GradeReportService) MyGrades(ctx context.Context, classID, studentID string) (*dto.MyGradesResponse, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student profile required")
	}
	active, err := s.roster.IsActive(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this class")
	}

	items, err := s.items.List(ctx, models.GradeItemFilter{ClassID: classID, PublishedOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade items")
	}
	scores, err := s.scores.ListByStudent(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student scores")
	}

	resp := &dto.MyGradesResponse{ClassID: classID, Items: joinStudentScores(items, scores)}
	final, err := s.finals.FindByStudent(ctx, classID, studentID)
	switch {
	case err == nil:
		if final.IsPublished {
			resp.FinalGrade = final
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grade")
	}
	return resp, nil
}

// PublishFinalGrades toggles student visibility of the class's final grades.
func (s *GradeReportService) PublishFinalGrades(ctx context.Context, classID string, req dto.PublishFinalGradesRequest, actor string) (*dto.PublishFinalGradesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish payload")
	}
	published := *req.Published
	updated, err := s.finals.SetPublished(ctx, classID, published)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update final grade visibility")
	}
	if updated == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "final grades have not been calculated yet")
	}
	s.cache.InvalidateClass(ctx, classID)

	if published && s.events != nil {
		event := events.Event{
			Type:    events.TypeFinalGradesPublished,
			ClassID: classID,
			ActorID: actor,
			Payload: map[string]interface{}{"updated": updated},
		}
		if err := s.events.Dispatch(ctx, event); err != nil {
			s.logger.Warn("grade event not queued", zap.String("type", event.Type), zap.String("class_id", classID), zap.Error(err))
		}
	}
	return &dto.PublishFinalGradesResult{ClassID: classID, Published: published, Updated: updated}, nil
}

// ExportFinalGrades renders the class ranking as CSV or PDF.
func (s *GradeReportService) ExportFinalGrades(ctx context.Context, classID, format string) (*dto.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	report, err := s.FinalGrades(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !report.IsCalculated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "final grades have not been calculated yet")
	}

	content, err := renderer.Render(rankingDataset(report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("final-grades-%s.%s", classID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func rankingDataset(report *dto.FinalGradesResponse) export.Dataset {
	headers := []string{"Rank", "Student No", "Student Name"}
	for _, category := range report.Categories {
		headers = append(headers, category.Name)
	}
	headers = append(headers, "Total", "Grade")

	data := export.Dataset{
		Title:    "Final Grades",
		Subtitle: []string{"Class " + report.ClassID},
		Headers:  headers,
		Rows:     make([]map[string]string, 0, len(report.FinalGrades)),
	}
	for _, entry := range report.FinalGrades {
		row := map[string]string{
			"Student No":   entry.StudentNo,
			"Student Name": entry.StudentName,
			"Grade":        entry.GradeLevel,
		}
		if entry.Rank != nil {
			row["Rank"] = strconv.Itoa(*entry.Rank)
		}
		if entry.TotalScore != nil {
			row["Total"] = formatScore(*entry.TotalScore)
		}
		for _, score := range entry.CategoryScores {
			row[score.Name] = formatScore(score.Score)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
