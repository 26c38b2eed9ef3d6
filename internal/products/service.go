package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
)

// Catalog exposes product reads with coded errors for the fulfillment flow.
type Catalog struct {
	repo *Repository
}

// NewCatalog wires the catalog to its repository.
func NewCatalog(repo *Repository) (*Catalog, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &Catalog{repo: repo}, nil
}

// WithTx returns a catalog reading through the provided transaction.
func (c *Catalog) WithTx(tx *gorm.DB) *Catalog {
	return &Catalog{repo: c.repo.WithTx(tx)}
}

// Get returns the product or a NotFound error naming the id.
func (c *Catalog) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := c.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err, productID)
	}
	return product, nil
}

// BillOfMaterial returns the filament rows consumed per unit of the product.
// A product without rows consumes nothing.
func (c *Catalog) BillOfMaterial(ctx context.Context, productID uuid.UUID) ([]models.ProductFilament, error) {
	rows, err := c.repo.ListBillOfMaterial(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bill of material")
	}
	return rows, nil
}

// CorrectUnitWeight lets an admin fix the per-unit weight of a product.
func (c *Catalog) CorrectUnitWeight(ctx context.Context, productID uuid.UUID, grams decimal.Decimal) error {
	if grams.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit weight must be zero or positive")
	}
	if err := c.repo.UpdateUnitWeight(ctx, productID, grams); err != nil {
		return mapLookupError(err, productID)
	}
	return nil
}

// UnitsForBatches converts a number of print batches into units.
func UnitsForBatches(product *models.Product, batches int) int {
	if product == nil || batches <= 0 {
		return 0
	}
	capacity := product.CapacityPerBatch
	if capacity <= 0 {
		capacity = 1
	}
	return batches * capacity
}

func mapLookupError(err error, productID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}
