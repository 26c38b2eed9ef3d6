package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printfarm-backend/api/responses"
	"github.com/angelmondragon/printfarm-backend/api/validators"
	"github.com/angelmondragon/printfarm-backend/internal/inventory"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
)

// StockReader serves the derived stock view.
type StockReader interface {
	Status(ctx context.Context, productID uuid.UUID) (inventory.StockStatus, error)
}

// StockGateway applies manual stock operations.
type StockGateway interface {
	Apply(ctx context.Context, productID uuid.UUID, op enums.StockOperation, quantity int) (*inventory.OperationResult, error)
}

// UnitWeightCorrector rewrites single-material unit weights.
type UnitWeightCorrector interface {
	CorrectUnitWeight(ctx context.Context, productID uuid.UUID, grams decimal.Decimal) error
}

type stockOperationRequest struct {
	Operation string `json:"operation" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type unitWeightRequest struct {
	Grams decimal.Decimal `json:"grams" validate:"gte=0"`
}

// ProductStock returns available, reserved and the display label for a product.
func ProductStock(reader StockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := reader.Status(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// ProductStockOperation applies a manual ADD, REMOVE, RESERVE or UNRESERVE.
func ProductStockOperation(gateway StockGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req stockOperationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		op, err := enums.ParseStockOperation(req.Operation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown stock operation").
				WithDetails(map[string]string{"operation": "must be one of ADD REMOVE RESERVE UNRESERVE"}))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProductID(ctx, productID.String())
		}
		result, err := gateway.Apply(ctx, productID, op, req.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductUnitWeight corrects the grams-per-unit figure of a single-material product.
func ProductUnitWeight(corrector UnitWeightCorrector, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req unitWeightRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := corrector.CorrectUnitWeight(r.Context(), productID, req.Grams); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"productId": productID, "grams": req.Grams})
	}
}
