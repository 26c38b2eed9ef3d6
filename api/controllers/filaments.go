package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printfarm-backend/api/responses"
	"github.com/angelmondragon/printfarm-backend/api/validators"
	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/pagination"
)

const filamentFilterMaxLen = 32

// SpoolDepot is the spool surface exposed over HTTP.
type SpoolDepot interface {
	ListSpools(ctx context.Context, filter filaments.SpoolFilter) ([]models.Filament, error)
	ListUsage(ctx context.Context, spoolID uuid.UUID, params pagination.Params) (*filaments.UsagePage, error)
	RegisterSpool(ctx context.Context, input filaments.RegisterSpoolInput) (*models.Filament, error)
}

type registerSpoolRequest struct {
	Code            string           `json:"code" validate:"required,max=64"`
	Type            string           `json:"type" validate:"required,max=32"`
	Color           string           `json:"color" validate:"required,max=32"`
	TotalWeight     decimal.Decimal  `json:"totalWeight" validate:"gt=0"`
	RemainingWeight *decimal.Decimal `json:"remainingWeight,omitempty" validate:"omitempty,gte=0"`
}

// FilamentList lists spools, optionally narrowed by ?type= and ?color=.
func FilamentList(depot SpoolDepot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := filaments.SpoolFilter{
			Type:  validators.QueryFilter(r, "type", filamentFilterMaxLen),
			Color: validators.QueryFilter(r, "color", filamentFilterMaxLen),
		}
		spools, err := depot.ListSpools(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, spools)
	}
}

// FilamentUsage pages through a spool's usage log via ?limit= and ?cursor=.
func FilamentUsage(depot SpoolDepot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spoolID, err := validators.ParseUUIDParam(r, "filamentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := depot.ListUsage(r.Context(), spoolID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func FilamentRegister(depot SpoolDepot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerSpoolRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		spool, err := depot.RegisterSpool(r.Context(), filaments.RegisterSpoolInput{
			Code:            validators.SanitizeString(req.Code, 64),
			Type:            req.Type,
			Color:           req.Color,
			TotalWeight:     req.TotalWeight,
			RemainingWeight: req.RemainingWeight,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, spool)
	}
}
