package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
)

const defaultMaxScore = 100.0

// GradeConfigService manages the categories and items a class is graded on.
type GradeConfigService struct {
	categories gradeCategoryStore
	items      gradeItemStore
	cache      *CacheService
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     *zap.Logger
}

// NewGradeConfigService constructs service.
func NewGradeConfigService(stores GradingStores, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeConfigService{
		categories: stores.Categories,
		items:      stores.Items,
		cache:      cache,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger,
	}
}

// ListCategories returns the class's categories ordered by display order, with items.
func (s *GradeConfigService) ListCategories(ctx context.Context, classID string) ([]models.GradeCategory, error) {
	categories, err := s.categories.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade categories")
	}
	return categories, nil
}

// CreateCategory adds a category to a class.
func (s *GradeConfigService) CreateCategory(ctx context.Context, classID string, req dto.CreateCategoryRequest) (*models.GradeCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade category payload")
	}
	if strings.TrimSpace(classID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	name := s.clean(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	category := &models.GradeCategory{
		ClassID:      classID,
		Name:         name,
		Weight:       req.Weight,
		Description:  s.cleanOptional(req.Description),
		DisplayOrder: req.DisplayOrder,
		Items:        []models.GradeItem{},
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade category")
	}
	s.cache.InvalidateClass(ctx, classID)
	return category, nil
}

// UpdateCategory applies a partial update.
func (s *GradeConfigService) UpdateCategory(ctx context.Context, id string, req dto.UpdateCategoryRequest) (*models.GradeCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade category payload")
	}
	category, err := s.loadCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := s.clean(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
		}
		category.Name = name
	}
	if req.Weight != nil {
		category.Weight = *req.Weight
	}
	if req.Description != nil {
		category.Description = s.cleanOptional(req.Description)
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade category")
	}
	s.cache.InvalidateClass(ctx, category.ClassID)
	return category, nil
}

// DeleteCategory removes a category with its items and their scores.
func (s *GradeConfigService) DeleteCategory(ctx context.Context, id string) error {
	category, err := s.loadCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade category")
	}
	s.logger.Info("grade category deleted", zap.String("category_id", id), zap.String("class_id", category.ClassID))
	s.cache.InvalidateClass(ctx, category.ClassID)
	return nil
}

// CreateItem adds an item to a category. The item inherits the category's class.
func (s *GradeConfigService) CreateItem(ctx context.Context, categoryID string, req dto.CreateItemRequest, actor string) (*models.GradeItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade item payload")
	}
	category, err := s.loadCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	name := s.clean(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	itemType := req.ItemType
	if itemType == "" {
		itemType = models.GradeItemManual
	}
	maxScore := defaultMaxScore
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}
	item := &models.GradeItem{
		CategoryID:          category.ID,
		ClassID:             category.ClassID,
		Name:                name,
		ItemType:            itemType,
		Weight:              req.Weight,
		MaxScore:            maxScore,
		RelatedAssignmentID: req.RelatedAssignmentID,
		AutoCalculate:       req.AutoCalculate,
		IsPublished:         req.IsPublished,
	}
	if actor != "" {
		item.CreatedBy = &actor
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade item")
	}
	s.cache.InvalidateClass(ctx, item.ClassID)
	return item, nil
}

// UpdateItem applies a partial update to name, weight, max score or visibility.
func (s *GradeConfigService) UpdateItem(ctx context.Context, id string, req dto.UpdateItemRequest) (*models.GradeItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade item payload")
	}
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := s.clean(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
		}
		item.Name = name
	}
	if req.Weight != nil {
		item.Weight = req.Weight
	}
	if req.MaxScore != nil {
		item.MaxScore = *req.MaxScore
	}
	if req.IsPublished != nil {
		item.IsPublished = *req.IsPublished
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade item")
	}
	s.cache.InvalidateClass(ctx, item.ClassID)
	return item, nil
}

// DeleteItem removes an item and its scores.
func (s *GradeConfigService) DeleteItem(ctx context.Context, id string) error {
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade item")
	}
	s.cache.InvalidateClass(ctx, item.ClassID)
	return nil
}

// ListClassItems lists a class's items of the given types, defaulting to the non-exam types.
func (s *GradeConfigService) ListClassItems(ctx context.Context, classID string, types []models.GradeItemType) ([]models.GradeItem, error) {
	if len(types) == 0 {
		types = models.DefaultListedItemTypes
	}
	items, err := s.items.List(ctx, models.GradeItemFilter{ClassID: classID, Types: types})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade items")
	}
	return items, nil
}

func (s *GradeConfigService) loadCategory(ctx context.Context, id string) (*models.GradeCategory, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade category")
	}
	return category, nil
}

func (s *GradeConfigService) loadItem(ctx context.Context, id string) (*models.GradeItem, error) {
	return findGradeItem(ctx, s.items, id)
}

func (s *GradeConfigService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func (s *GradeConfigService) cleanOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.clean(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func findGradeItem(ctx context.Context, items gradeItemStore, id string) (*models.GradeItem, error) {
	item, err := items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade item")
	}
	return item, nil
}
