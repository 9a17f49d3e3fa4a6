package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	"github.com/noah-isme/teaching-portal-api/pkg/response"
)

type gradeScoreService interface {
	ListItemScores(ctx context.Context, itemID string) (*dto.ItemScoresResponse, error)
	BatchUpsertScores(ctx context.Context, itemID string, req dto.BatchScoresRequest, actor string) (*dto.BatchScoresResult, error)
	UpsertScore(ctx context.Context, itemID string, entry dto.ScoreEntry, actor string) (*models.StudentGradeScore, error)
	StudentScores(ctx context.Context, classID, studentID string) ([]dto.StudentItemScore, error)
}

// GradeScoreHandler exposes score entry endpoints.
type GradeScoreHandler struct {
	scores gradeScoreService
}

// NewGradeScoreHandler constructs handler.
func NewGradeScoreHandler(scores gradeScoreService) *GradeScoreHandler {
	return &GradeScoreHandler{scores: scores}
}

// ListItemScores godoc
// @Summary Score sheet of a grade item
// @Tags Grade Scores
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /grade-items/{id}/scores [get]
func (h *GradeScoreHandler) ListItemScores(c *gin.Context) {
	sheet, err := h.scores.ListItemScores(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// BatchUpsert godoc
// @Summary Save scores for a grade item
// @Tags Grade Scores
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.BatchScoresRequest true "Scores payload"
// @Success 200 {object} response.Envelope
// @Router /grade-items/{id}/scores [post]
func (h *GradeScoreHandler) BatchUpsert(c *gin.Context) {
	var req dto.BatchScoresRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.scores.BatchUpsertScores(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Upsert godoc
// @Summary Save one student's score for a grade item
// @Tags Grade Scores
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.ScoreEntry true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /grade-items/{id}/score [post]
func (h *GradeScoreHandler) Upsert(c *gin.Context) {
	var req dto.ScoreEntry
	if !bindJSON(c, &req) {
		return
	}
	score, err := h.scores.UpsertScore(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// StudentScores godoc
// @Summary Every class item with a student's score
// @Tags Grade Scores
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/scores [get]
func (h *GradeScoreHandler) StudentScores(c *gin.Context) {
	rows, err := h.scores.StudentScores(c.Request.Context(), c.Param("classId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
