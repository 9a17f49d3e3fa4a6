package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	"github.com/noah-isme/teaching-portal-api/pkg/response"
)

type gradeConfigService interface {
	ListCategories(ctx context.Context, classID string) ([]models.GradeCategory, error)
	CreateCategory(ctx context.Context, classID string, req dto.CreateCategoryRequest) (*models.GradeCategory, error)
	UpdateCategory(ctx context.Context, id string, req dto.UpdateCategoryRequest) (*models.GradeCategory, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateItem(ctx context.Context, categoryID string, req dto.CreateItemRequest, actor string) (*models.GradeItem, error)
	UpdateItem(ctx context.Context, id string, req dto.UpdateItemRequest) (*models.GradeItem, error)
	DeleteItem(ctx context.Context, id string) error
	ListClassItems(ctx context.Context, classID string, types []models.GradeItemType) ([]models.GradeItem, error)
}

// GradeConfigHandler exposes grade category and item endpoints.
type GradeConfigHandler struct {
	config gradeConfigService
}

// NewGradeConfigHandler constructs handler.
func NewGradeConfigHandler(config gradeConfigService) *GradeConfigHandler {
	return &GradeConfigHandler{config: config}
}

// ListCategories godoc
// @Summary List grade categories of a class
// @Tags Grade Config
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/grade-categories [get]
func (h *GradeConfigHandler) ListCategories(c *gin.Context) {
	categories, err := h.config.ListCategories(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// CreateCategory godoc
// @Summary Create grade category
// @Tags Grade Config
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.CreateCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/grade-categories [post]
func (h *GradeConfigHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.config.CreateCategory(c.Request.Context(), c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update grade category
// @Tags Grade Config
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.UpdateCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /grade-categories/{id} [put]
func (h *GradeConfigHandler) UpdateCategory(c *gin.Context) {
	var req dto.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.config.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// DeleteCategory godoc
// @Summary Delete grade category with its items and scores
// @Tags Grade Config
// @Param id path string true "Category ID"
// @Success 204
// @Router /grade-categories/{id} [delete]
func (h *GradeConfigHandler) DeleteCategory(c *gin.Context) {
	if err := h.config.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateItem godoc
// @Summary Create grade item in a category
// @Tags Grade Config
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.CreateItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Router /grade-categories/{id}/items [post]
func (h *GradeConfigHandler) CreateItem(c *gin.Context) {
	var req dto.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.config.CreateItem(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateItem godoc
// @Summary Update grade item
// @Tags Grade Config
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.UpdateItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /grade-items/{id} [put]
func (h *GradeConfigHandler) UpdateItem(c *gin.Context) {
	var req dto.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.config.UpdateItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteItem godoc
// @Summary Delete grade item with its scores
// @Tags Grade Config
// @Param id path string true "Item ID"
// @Success 204
// @Router /grade-items/{id} [delete]
func (h *GradeConfigHandler) DeleteItem(c *gin.Context) {
	if err := h.config.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListClassItems godoc
// @Summary List class grade items by type
// @Tags Grade Config
// @Produce json
// @Param classId path string true "Class ID"
// @Param types query string false "Comma separated item types"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/grade-items [get]
func (h *GradeConfigHandler) ListClassItems(c *gin.Context) {
	items, err := h.config.ListClassItems(c.Request.Context(), c.Param("classId"), parseItemTypes(c.Query("types")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

func parseItemTypes(raw string) []models.GradeItemType {
	var types []models.GradeItemType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, models.GradeItemType(strings.ToLower(part)))
		}
	}
	return types
}
