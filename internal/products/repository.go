package product

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
)

// Repository wires together product and bill-of-material persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
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

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByCode loads the product by its catalog code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListBillOfMaterial returns the filament rows of a product in a stable order.
func (r *Repository) ListBillOfMaterial(ctx context.Context, productID uuid.UUID) ([]models.ProductFilament, error) {
	var rows []models.ProductFilament
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("filament_type ASC, filament_color ASC").
		Find(&rows).
		Error
	return rows, err
}

// CreateProduct inserts a new product row together with its bill of material.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// ReplaceBillOfMaterial replaces all filament rows for the product.
func (r *Repository) ReplaceBillOfMaterial(ctx context.Context, productID uuid.UUID, rows []models.ProductFilament) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductFilament{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].ProductID = productID
	}
	return tx.Create(&rows).Error
}

// UpdateUnitWeight corrects the printed weight of a single unit.
func (r *Repository) UpdateUnitWeight(ctx context.Context, productID uuid.UUID, grams decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("unit_weight_grams", grams)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
