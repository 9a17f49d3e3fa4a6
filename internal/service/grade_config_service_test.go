package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/teaching-portal-api/internal/dto"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
)

func newConfigFixture() (*gradingFixture, *GradeConfigService, *memoryCache) {
	fx := newGradingFixture()
	cacheRepo := &memoryCache{}
	cache := NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true)
	return fx, NewGradeConfigService(fx.stores(), cache, nil, zap.NewNop()), cacheRepo
}

func TestGradeConfigServiceCreateCategorySanitizes(t *testing.T) {
	fx, svc, cacheRepo := newConfigFixture()

	category, err := svc.CreateCategory(context.Background(), "class-1", dto.CreateCategoryRequest{
		Name:        "<b>Homework</b>",
		Weight:      40,
		Description: textPtr("<script>alert(1)</script>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Homework", category.Name)
	assert.Nil(t, category.Description)
	assert.Equal(t, "class-1", category.ClassID)
	assert.Len(t, fx.categories.rows, 1)
	assert.Equal(t, []string{"class:class-1:*"}, cacheRepo.invalidated)
}

func TestGradeConfigServiceCreateCategoryValidation(t *testing.T) {
	_, svc, _ := newConfigFixture()

	_, err := svc.CreateCategory(context.Background(), "class-1", dto.CreateCategoryRequest{Name: "Exams", Weight: 150})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateCategory(context.Background(), "class-1", dto.CreateCategoryRequest{Name: "<i></i>", Weight: 10})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeConfigServiceUpdateCategoryPartial(t *testing.T) {
	fx, svc, _ := newConfigFixture()
	fx.addCategory("class-1", "cat-1", "Homework", 30, 1)

	updated, err := svc.UpdateCategory(context.Background(), "cat-1", dto.UpdateCategoryRequest{Weight: floatPtr(45)})
	require.NoError(t, err)
	assert.Equal(t, "Homework", updated.Name)
	assert.Equal(t, 45.0, updated.Weight)
	assert.Equal(t, 45.0, fx.categories.rows[0].Weight)

	_, err = svc.UpdateCategory(context.Background(), "missing", dto.UpdateCategoryRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGradeConfigServiceDeleteCategory(t *testing.T) {
	fx, svc, _ := newConfigFixture()
	fx.addCategory("class-1", "cat-1", "Homework", 30, 1)

	require.NoError(t, svc.DeleteCategory(context.Background(), "cat-1"))
	assert.Empty(t, fx.categories.rows)

	err := svc.DeleteCategory(context.Background(), "cat-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGradeConfigServiceCreateItemInheritsClass(t *testing.T) {
	fx, svc, _ := newConfigFixture()
	fx.addCategory("class-7", "cat-1", "Quizzes", 20, 1)

	item, err := svc.CreateItem(context.Background(), "cat-1", dto.CreateItemRequest{Name: "Quiz 1"}, "teacher-9")
	require.NoError(t, err)
	assert.Equal(t, "class-7", item.ClassID)
	assert.Equal(t, models.GradeItemManual, item.ItemType)
	assert.Equal(t, 100.0, item.MaxScore)
	require.NotNil(t, item.CreatedBy)
	assert.Equal(t, "teacher-9", *item.CreatedBy)

	_, err = svc.CreateItem(context.Background(), "cat-1", dto.CreateItemRequest{Name: "Quiz 2", MaxScore: floatPtr(0)}, "")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateItem(context.Background(), "cat-1", dto.CreateItemRequest{Name: "Quiz 3", ItemType: "essay"}, "")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateItem(context.Background(), "nope", dto.CreateItemRequest{Name: "Quiz 4"}, "")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGradeConfigServiceUpdateAndDeleteItem(t *testing.T) {
	fx, svc, _ := newConfigFixture()
	fx.addItem(models.GradeItem{ID: "item-1", CategoryID: "cat-1", ClassID: "class-1", Name: "Essay"})

	updated, err := svc.UpdateItem(context.Background(), "item-1", dto.UpdateItemRequest{MaxScore: floatPtr(20), IsPublished: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.MaxScore)
	assert.True(t, updated.IsPublished)
	assert.Equal(t, "Essay", updated.Name)

	require.NoError(t, svc.DeleteItem(context.Background(), "item-1"))
	assert.Empty(t, fx.items.rows)
}

func TestGradeConfigServiceListClassItemsDefaultsTypes(t *testing.T) {
	fx, svc, _ := newConfigFixture()
	fx.addItem(models.GradeItem{ID: "a", ClassID: "class-1", ItemType: models.GradeItemAttendance})
	fx.addItem(models.GradeItem{ID: "b", ClassID: "class-1", ItemType: models.GradeItemExam})
	fx.addItem(models.GradeItem{ID: "c", ClassID: "class-1", ItemType: models.GradeItemProject})

	items, err := svc.ListClassItems(context.Background(), "class-1", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)

	items, err = svc.ListClassItems(context.Background(), "class-1", []models.GradeItemType{models.GradeItemExam})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestGradeConfigServiceListCategoriesOrdered(t *testing.T) {
	fx, svc, _ := newConfigFixture()
	fx.addCategory("class-1", "cat-b", "Exams", 60, 2)
	fx.addCategory("class-1", "cat-a", "Homework", 40, 1)
	fx.addItem(models.GradeItem{ID: "hw", CategoryID: "cat-a", ClassID: "class-1"})

	categories, err := svc.ListCategories(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "cat-a", categories[0].ID)
	assert.Len(t, categories[0].Items, 1)
	assert.Empty(t, categories[1].Items)
}
