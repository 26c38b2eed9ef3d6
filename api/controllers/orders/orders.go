package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/printfarm-backend/api/responses"
	"github.com/angelmondragon/printfarm-backend/api/validators"
	internalorders "github.com/angelmondragon/printfarm-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
)

const maxOrderCodeLen = 64

type transitionRequest struct {
	TargetStatus       string               `json:"targetStatus" validate:"required,max=64"`
	ProductionQuantity int                  `json:"productionQuantity" validate:"gte=0"`
	ProductionBatches  int                  `json:"productionBatches" validate:"gte=0"`
	SkipProduction     bool                 `json:"skipProduction"`
	SelectedSpools     map[string]uuid.UUID `json:"selectedSpools,omitempty"`
}

// Create opens a customer order, or a stock order when no customer is given.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var input internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns an order and its lines by order code.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := parseOrderCode(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Delete removes an order, returning stock held by ready lines. Orders with
// lines still in production are refused.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := parseOrderCode(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.DeleteOrder(r.Context(), order.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TransitionLine moves one line of an order to the requested status.
func TransitionLine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := parseOrderCode(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderCode(ctx, code)
		}
		result, err := svc.TransitionLine(ctx, internalorders.TransitionInput{
			OrderCode:          code,
			LineID:             lineID,
			TargetStatus:       req.TargetStatus,
			ProductionQuantity: req.ProductionQuantity,
			ProductionBatches:  req.ProductionBatches,
			SkipProduction:     req.SkipProduction,
			SelectedSpools:     req.SelectedSpools,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseOrderCode(r *http.Request) (string, error) {
	code := validators.SanitizeString(chi.URLParam(r, "orderCode"), maxOrderCodeLen)
	if code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	return code, nil
}
