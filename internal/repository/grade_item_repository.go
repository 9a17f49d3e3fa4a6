package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

const gradeItemColumns = `id, category_id, class_id, name, item_type, weight, max_score, related_assignment_id, auto_calculate, is_published, created_by, created_at, updated_at`

// GradeItemRepository persists grade items.
type GradeItemRepository struct {
	idAllocator
	db *sqlx.DB
}

// NewGradeItemRepository creates a new item repository.
func NewGradeItemRepository(db *sqlx.DB) *GradeItemRepository {
	return &GradeItemRepository{db: db}
}

// FindByID returns an item.
func (r *GradeItemRepository) FindByID(ctx context.Context, id string) (*models.GradeItem, error) {
	query := `SELECT ` + gradeItemColumns + ` FROM grade_items WHERE id = $1`
	var item models.GradeItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns items matching the filter, oldest first.
func (r *GradeItemRepository) List(ctx context.Context, filter models.GradeItemFilter) ([]models.GradeItem, error) {
	query := `SELECT ` + gradeItemColumns + ` FROM grade_items WHERE class_id = $1`
	args := []interface{}{filter.ClassID}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, string(t))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND item_type IN (%s)", strings.Join(placeholders, ","))
	}
	if filter.PublishedOnly {
		query += " AND is_published = TRUE"
	}
	query += " ORDER BY created_at, id"

	var items []models.GradeItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list grade items: %w", err)
	}
	return items, nil
}

// Create inserts an item.
func (r *GradeItemRepository) Create(ctx context.Context, item *models.GradeItem) error {
	if item.ID == "" {
		item.ID = r.nextID()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO grade_items (id, category_id, class_id, name, item_type, weight, max_score, related_assignment_id, auto_calculate, is_published, created_by, created_at, updated_at)
        VALUES (:id, :category_id, :class_id, :name, :item_type, :weight, :max_score, :related_assignment_id, :auto_calculate, :is_published, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create grade item: %w", err)
	}
	return nil
}

// Update saves the mutable fields of an item.
func (r *GradeItemRepository) Update(ctx context.Context, item *models.GradeItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_items SET name = :name, weight = :weight, max_score = :max_score, is_published = :is_published, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update grade item: %w", err)
	}
	return nil
}

// Delete removes an item and its scores.
func (r *GradeItemRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_grade_scores WHERE grade_item_id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete item scores: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_items WHERE id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete grade item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit item delete: %w", err)
	}
	return nil
}
