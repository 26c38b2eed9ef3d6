package filaments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/pagination"
)

// SpoolFilter narrows spool listings. Empty fields match everything.
type SpoolFilter struct {
	Type  string
	Color string
}

// Repository persists spools and their usage log.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a spool.
func (r *Repository) Create(ctx context.Context, spool *models.Filament) error {
	return r.db.WithContext(ctx).Create(spool).Error
}

// FindByID loads a spool; lock reads it FOR UPDATE.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Filament, error) {
	var spool models.Filament
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("id = ?", id).Take(&spool).Error; err != nil {
		return nil, err
	}
	return &spool, nil
}

// FindHeaviest returns the spool of the given type and color with the most
// remaining weight.
func (r *Repository) FindHeaviest(ctx context.Context, filamentType, color string, lock bool) (*models.Filament, error) {
	var spool models.Filament
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.
		Where("type = ? AND color = ?", filamentType, color).
		Order("remaining_weight DESC").
		Order("created_at ASC").
		Take(&spool).Error
	if err != nil {
		return nil, err
	}
	return &spool, nil
}

// DecrementWeight removes grams from a spool. It reports false when the spool
// no longer holds enough weight.
func (r *Repository) DecrementWeight(ctx context.Context, id uuid.UUID, grams decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Filament{}).
		Where("id = ? AND remaining_weight >= ?", id, grams).
		Update("remaining_weight", gorm.Expr("remaining_weight - ?", grams))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateUsage appends a usage record.
func (r *Repository) CreateUsage(ctx context.Context, usage *models.FilamentUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

// List returns spools matching the filter, heaviest first.
func (r *Repository) List(ctx context.Context, filter SpoolFilter) ([]models.Filament, error) {
	query := r.db.WithContext(ctx).Model(&models.Filament{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Color != "" {
		query = query.Where("color = ?", filter.Color)
	}
	var rows []models.Filament
	err := query.Order("type ASC, color ASC, remaining_weight DESC").Find(&rows).Error
	return rows, err
}

// ListBelow returns spools whose remaining weight is under threshold grams.
func (r *Repository) ListBelow(ctx context.Context, threshold decimal.Decimal) ([]models.Filament, error) {
	var rows []models.Filament
	err := r.db.WithContext(ctx).
		Where("remaining_weight < ?", threshold).
		Order("remaining_weight ASC").
		Find(&rows).Error
	return rows, err
}

// ListUsage returns up to limit usage rows of a spool, newest first,
// strictly after the given cursor.
func (r *Repository) ListUsage(ctx context.Context, spoolID uuid.UUID, limit int, after *pagination.Cursor) ([]models.FilamentUsage, error) {
	var rows []models.FilamentUsage
	q := r.db.WithContext(ctx).Where("filament_id = ?", spoolID)
	if after != nil {
		q = q.Where("usage_date < ? OR (usage_date = ? AND id < ?)", after.At, after.At, after.ID)
	}
	err := q.Order("usage_date DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
