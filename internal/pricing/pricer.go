package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
)

// Pricer quotes the unit price of an order line.
type Pricer interface {
	UnitPrice(ctx context.Context, customerID *uuid.UUID, productID uuid.UUID, quantity int, filamentType *string) (decimal.Decimal, error)
}

// CatalogPricer prices lines from the product list prices. Wholesale
// customers get the wholesale list; everyone else pays the retail price and
// must pick a filament type.
type CatalogPricer struct {
	db *gorm.DB
}

// NewCatalogPricer builds a pricer backed by the product and customer tables.
func NewCatalogPricer(db *gorm.DB) (*CatalogPricer, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &CatalogPricer{db: db}, nil
}

func (p *CatalogPricer) UnitPrice(ctx context.Context, customerID *uuid.UUID, productID uuid.UUID, quantity int, filamentType *string) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var product models.Product
	if err := p.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for pricing")
	}

	// stock orders are valued at the retail list price
	if customerID == nil {
		return product.UnitPrice, nil
	}

	var customer models.Customer
	if err := p.db.WithContext(ctx).First(&customer, "id = ?", *customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("customer %s not found", *customerID))
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer for pricing")
	}

	if customer.Wholesale {
		if product.WholesalePrice.IsPositive() {
			return product.WholesalePrice, nil
		}
		return product.UnitPrice, nil
	}

	if filamentType == nil || strings.TrimSpace(*filamentType) == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "filament type is required for retail pricing").
			WithDetails(map[string]any{"productId": productID.String()})
	}
	return product.UnitPrice, nil
}
