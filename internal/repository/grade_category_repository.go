package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

const gradeCategoryColumns = `id, class_id, name, weight, description, display_order, created_at, updated_at`

// GradeCategoryRepository persists grade categories.
type GradeCategoryRepository struct {
	idAllocator
	db *sqlx.DB
}

// NewGradeCategoryRepository creates a new category repository.
func NewGradeCategoryRepository(db *sqlx.DB) *GradeCategoryRepository {
	return &GradeCategoryRepository{db: db}
}

// ListByClass returns the class's categories in display order, each with its items.
func (r *GradeCategoryRepository) ListByClass(ctx context.Context, classID string) ([]models.GradeCategory, error) {
	query := `SELECT ` + gradeCategoryColumns + ` FROM grade_categories WHERE class_id = $1 ORDER BY display_order, created_at, id`
	var categories []models.GradeCategory
	if err := r.db.SelectContext(ctx, &categories, query, classID); err != nil {
		return nil, fmt.Errorf("list grade categories: %w", err)
	}
	if len(categories) == 0 {
		return categories, nil
	}

	itemQuery := `SELECT ` + gradeItemColumns + ` FROM grade_items WHERE class_id = $1 ORDER BY created_at, id`
	var items []models.GradeItem
	if err := r.db.SelectContext(ctx, &items, itemQuery, classID); err != nil {
		return nil, fmt.Errorf("list category items: %w", err)
	}

	index := make(map[string]int, len(categories))
	for i := range categories {
		categories[i].Items = []models.GradeItem{}
		index[categories[i].ID] = i
	}
	for _, item := range items {
		if i, ok := index[item.CategoryID]; ok {
			categories[i].Items = append(categories[i].Items, item)
		}
	}
	return categories, nil
}

// FindByID returns a category without its items.
func (r *GradeCategoryRepository) FindByID(ctx context.Context, id string) (*models.GradeCategory, error) {
	query := `SELECT ` + gradeCategoryColumns + ` FROM grade_categories WHERE id = $1`
	var category models.GradeCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a category.
func (r *GradeCategoryRepository) Create(ctx context.Context, category *models.GradeCategory) error {
	if category.ID == "" {
		category.ID = r.nextID()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO grade_categories (id, class_id, name, weight, description, display_order, created_at, updated_at)
        VALUES (:id, :class_id, :name, :weight, :description, :display_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create grade category: %w", err)
	}
	return nil
}

// Update saves the mutable fields of a category.
func (r *GradeCategoryRepository) Update(ctx context.Context, category *models.GradeCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_categories SET name = :name, weight = :weight, description = :description, display_order = :display_order, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update grade category: %w", err)
	}
	return nil
}

// Delete removes a category together with its items and their scores.
func (r *GradeCategoryRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	steps := []struct {
		label string
		query string
	}{
		{"delete category scores", `DELETE FROM student_grade_scores WHERE grade_item_id IN (SELECT id FROM grade_items WHERE category_id = $1)`},
		{"delete category items", `DELETE FROM grade_items WHERE category_id = $1`},
		{"delete grade category", `DELETE FROM grade_categories WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("%s: %w", step.label, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit category delete: %w", err)
	}
	return nil
}
