package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/pkg/response"
)

type gradeAggregator interface {
	RecomputeClassFinalGrades(ctx context.Context, classID string) (*dto.RecomputeResult, error)
	ComputeAttendanceItemScores(ctx context.Context, itemID, actor string) (*dto.AttendanceScoresResult, error)
}

type gradeReporter interface {
	FinalGrades(ctx context.Context, classID string) (*dto.FinalGradesResponse, error)
	Statistics(ctx context.Context, classID string) (*dto.GradeStatistics, error)
	MyGrades(ctx context.Context, classID, studentID string) (*dto.MyGradesResponse, error)
	PublishFinalGrades(ctx context.Context, classID string, req dto.PublishFinalGradesRequest, actor string) (*dto.PublishFinalGradesResult, error)
	ExportFinalGrades(ctx context.Context, classID, format string) (*dto.ExportFile, error)
}

// FinalGradeHandler exposes aggregation and reporting endpoints.
type FinalGradeHandler struct {
	aggregator gradeAggregator
	reports    gradeReporter
}

// NewFinalGradeHandler constructs handler.
func NewFinalGradeHandler(aggregator gradeAggregator, reports gradeReporter) *FinalGradeHandler {
	return &FinalGradeHandler{aggregator: aggregator, reports: reports}
}

// Recompute godoc
// @Summary Recompute and rank a class's final grades
// @Tags Final Grades
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes/{classId}/final-grades/recompute [post]
func (h *FinalGradeHandler) Recompute(c *gin.Context) {
	result, err := h.aggregator.RecomputeClassFinalGrades(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AttendanceScores godoc
// @Summary Score an attendance item from attendance records
// @Tags Final Grades
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grade-items/{id}/attendance-scores [post]
func (h *FinalGradeHandler) AttendanceScores(c *gin.Context) {
	result, err := h.aggregator.ComputeAttendanceItemScores(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary Final grades of a class
// @Tags Final Grades
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/final-grades [get]
func (h *FinalGradeHandler) List(c *gin.Context) {
	resp, err := h.reports.FinalGrades(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Statistics godoc
// @Summary Grade statistics of a class
// @Tags Final Grades
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/grade-statistics [get]
func (h *FinalGradeHandler) Statistics(c *gin.Context) {
	stats, err := h.reports.Statistics(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Publish godoc
// @Summary Publish or hide a class's final grades
// @Tags Final Grades
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.PublishFinalGradesRequest true "Publish payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/final-grades/publish [post]
func (h *FinalGradeHandler) Publish(c *gin.Context) {
	var req dto.PublishFinalGradesRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.reports.PublishFinalGrades(c.Request.Context(), c.Param("classId"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download a class ranking
// @Tags Final Grades
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /classes/{classId}/final-grades/export [get]
func (h *FinalGradeHandler) Export(c *gin.Context) {
	file, err := h.reports.ExportFinalGrades(c.Request.Context(), c.Param("classId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// MyGrades godoc
// @Summary The caller's published grades in a class
// @Tags Final Grades
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/my-grades [get]
func (h *FinalGradeHandler) MyGrades(c *gin.Context) {
	resp, err := h.reports.MyGrades(c.Request.Context(), c.Param("classId"), studentFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
