package filaments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/pagination"
)

// SpoolKey builds the "{type}-{color}" key callers use to pin a spool.
func SpoolKey(filamentType, color string) string {
	return filamentType + "-" + color
}

// ConsumeRequest describes one production run that draws its bill of material.
type ConsumeRequest struct {
	ProductID      uuid.UUID
	OrderID        *uuid.UUID
	Units          int
	BillOfMaterial []models.ProductFilament
	SelectedSpools map[string]uuid.UUID
	Description    string
}

// Consumption reports the grams drawn from one spool.
type Consumption struct {
	SpoolID   uuid.UUID       `json:"spoolId"`
	SpoolCode string          `json:"spoolCode"`
	Type      string          `json:"type"`
	Color     string          `json:"color"`
	Grams     decimal.Decimal `json:"grams"`
	Remaining decimal.Decimal `json:"remaining"`
}

// RegisterSpoolInput is the payload to add a new spool to the depot.
type RegisterSpoolInput struct {
	Code            string
	Type            string
	Color           string
	TotalWeight     decimal.Decimal
	RemainingWeight *decimal.Decimal
}

// Depot owns spool weights. Weight only decreases and is never refunded.
type Depot struct {
	repo *Repository
	now  func() time.Time
}

// NewDepot wires the depot to its repository.
func NewDepot(repo *Repository) (*Depot, error) {
	if repo == nil {
		return nil, fmt.Errorf("filament repository required")
	}
	return &Depot{repo: repo, now: time.Now}, nil
}

// WithTx returns a depot operating inside tx.
func (d *Depot) WithTx(tx *gorm.DB) *Depot {
	return &Depot{repo: d.repo.WithTx(tx), now: d.now}
}

// Consume draws gramsPerUnit x Units for every bill-of-material row. It must
// run inside the caller's transaction: on error some spools may already be
// decremented and the caller is expected to roll back.
func (d *Depot) Consume(ctx context.Context, req ConsumeRequest) ([]Consumption, error) {
	if req.Units <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "units to produce must be greater than zero")
	}
	if len(req.BillOfMaterial) == 0 {
		return nil, nil
	}

	units := decimal.NewFromInt(int64(req.Units))
	out := make([]Consumption, 0, len(req.BillOfMaterial))
	for _, row := range req.BillOfMaterial {
		needed := row.GramsPerUnit.Mul(units)
		if !needed.IsPositive() {
			continue
		}

		var selected *uuid.UUID
		if id, ok := req.SelectedSpools[SpoolKey(row.FilamentType, row.FilamentColor)]; ok && id != uuid.Nil {
			selected = &id
		}
		spool, err := d.ResolveSpool(ctx, row.FilamentType, row.FilamentColor, selected)
		if err != nil {
			return nil, err
		}
		if spool.RemainingWeight.LessThan(needed) {
			return nil, insufficientMaterial(spool, needed)
		}

		ok, err := d.repo.DecrementWeight(ctx, spool.ID, needed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement spool weight")
		}
		if !ok {
			return nil, insufficientMaterial(spool, needed)
		}

		productID := req.ProductID
		usage := &models.FilamentUsage{
			FilamentID:  spool.ID,
			ProductID:   &productID,
			OrderID:     req.OrderID,
			AmountGrams: needed,
			Description: req.Description,
			UsageDate:   d.now().UTC(),
		}
		if err := d.repo.CreateUsage(ctx, usage); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record filament usage")
		}

		out = append(out, Consumption{
			SpoolID:   spool.ID,
			SpoolCode: spool.Code,
			Type:      spool.Type,
			Color:     spool.Color,
			Grams:     needed,
			Remaining: spool.RemainingWeight.Sub(needed),
		})
	}
	return out, nil
}

// ResolveSpool locks and returns the spool to draw from. A pinned spool must
// match the requested type and color; otherwise the heaviest matching spool
// is chosen.
func (d *Depot) ResolveSpool(ctx context.Context, filamentType, color string, selected *uuid.UUID) (*models.Filament, error) {
	if selected != nil {
		spool, err := d.repo.FindByID(ctx, *selected, true)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("spool %s not found", *selected))
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load spool")
		}
		if !strings.EqualFold(spool.Type, filamentType) || !strings.EqualFold(spool.Color, color) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("spool %s is %s/%s, not %s/%s", spool.Code, spool.Type, spool.Color, filamentType, color))
		}
		return spool, nil
	}

	spool, err := d.repo.FindHeaviest(ctx, filamentType, color, true)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no spool found for %s/%s", filamentType, color))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select spool")
	}
	return spool, nil
}

// ListSpools returns the spools matching filter.
func (d *Depot) ListSpools(ctx context.Context, filter SpoolFilter) ([]models.Filament, error) {
	rows, err := d.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list spools")
	}
	return rows, nil
}

// ListLowSpools returns spools under threshold grams.
func (d *Depot) ListLowSpools(ctx context.Context, threshold decimal.Decimal) ([]models.Filament, error) {
	rows, err := d.repo.ListBelow(ctx, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low spools")
	}
	return rows, nil
}

// UsagePage is one page of a spool's usage log.
type UsagePage struct {
	Entries    []models.FilamentUsage `json:"entries"`
	NextCursor string                 `json:"nextCursor,omitempty"`
}

// ListUsage returns a page of a spool's usage history, newest first.
func (d *Depot) ListUsage(ctx context.Context, spoolID uuid.UUID, params pagination.Params) (*UsagePage, error) {
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if _, err := d.repo.FindByID(ctx, spoolID, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("spool %s not found", spoolID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load spool")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := d.repo.ListUsage(ctx, spoolID, pagination.LimitWithBuffer(limit), after)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list filament usage")
	}

	page := &UsagePage{Entries: rows}
	if len(rows) > limit {
		page.Entries = rows[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: last.UsageDate, ID: last.ID})
	}
	return page, nil
}

// RegisterSpool adds a spool. Remaining weight defaults to the total.
func (d *Depot) RegisterSpool(ctx context.Context, input RegisterSpoolInput) (*models.Filament, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" || strings.TrimSpace(input.Type) == "" || strings.TrimSpace(input.Color) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code, type and color are required")
	}
	if !input.TotalWeight.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total weight must be greater than zero")
	}
	remaining := input.TotalWeight
	if input.RemainingWeight != nil {
		remaining = *input.RemainingWeight
	}
	if remaining.IsNegative() || remaining.GreaterThan(input.TotalWeight) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remaining weight must be between zero and total weight")
	}

	spool := &models.Filament{
		Code:            code,
		Type:            strings.TrimSpace(input.Type),
		Color:           strings.TrimSpace(input.Color),
		TotalWeight:     input.TotalWeight,
		RemainingWeight: remaining,
	}
	if err := d.repo.Create(ctx, spool); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("spool code %s already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create spool")
	}
	return spool, nil
}

func insufficientMaterial(spool *models.Filament, needed decimal.Decimal) error {
	msg := fmt.Sprintf("insufficient filament on spool %s (%s/%s): available %sg, required %sg",
		spool.Code, spool.Type, spool.Color, spool.RemainingWeight.StringFixed(2), needed.StringFixed(2))
	return pkgerrors.New(pkgerrors.CodeInsufficientMaterial, msg).WithDetails(map[string]any{
		"spoolCode": spool.Code,
		"type":      spool.Type,
		"color":     spool.Color,
		"available": spool.RemainingWeight.StringFixed(2),
		"required":  needed.StringFixed(2),
	})
}
