package cron

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox/payloads"
)

type lowSpoolLister interface {
	ListLowSpools(ctx context.Context, threshold decimal.Decimal) ([]models.Filament, error)
}

type onceEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

// LowFilamentJobParams configure the low spool alert job.
type LowFilamentJobParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Spools         lowSpoolLister
	Outbox         onceEmitter
	ThresholdGrams decimal.Decimal
	ServiceName    string
}

// NewLowFilamentJob constructs the job that raises one alert per spool whose
// remaining weight dropped below the threshold.
func NewLowFilamentJob(params LowFilamentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Spools == nil {
		return nil, fmt.Errorf("spool lister required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if !params.ThresholdGrams.IsPositive() {
		return nil, fmt.Errorf("low filament threshold must be positive")
	}
	return &lowFilamentJob{
		logg:      params.Logger,
		db:        params.DB,
		spools:    params.Spools,
		outbox:    params.Outbox,
		threshold: params.ThresholdGrams,
		service:   params.ServiceName,
	}, nil
}

type lowFilamentJob struct {
	logg      *logger.Logger
	db        txRunner
	spools    lowSpoolLister
	outbox    onceEmitter
	threshold decimal.Decimal
	service   string
}

func (j *lowFilamentJob) Name() string { return "low-filament-alerts" }

func (j *lowFilamentJob) Run(ctx context.Context) error {
	spools, err := j.spools.ListLowSpools(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("list low spools: %w", err)
	}

	var (
		errs    error
		alerted int
	)
	for _, spool := range spools {
		created, err := j.alert(ctx, spool)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("spool %s: %w", spool.Code, err))
			continue
		}
		if created {
			alerted++
			j.logg.Debug(j.logg.WithSpoolCode(ctx, spool.Code), "low filament alert queued")
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"threshold_grams": j.threshold.String(),
		"low_spools":      len(spools),
		"alerts_queued":   alerted,
	}), "low filament scan complete")
	return errs
}

func (j *lowFilamentJob) alert(ctx context.Context, spool models.Filament) (bool, error) {
	var created bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFilamentLowWeight,
			AggregateType: enums.AggregateFilament,
			AggregateID:   spool.ID,
			Actor:         &outbox.ActorRef{Service: j.service},
			Data: payloads.FilamentLowWeightEvent{
				FilamentID:      spool.ID,
				Code:            spool.Code,
				Type:            spool.Type,
				Color:           spool.Color,
				RemainingWeight: spool.RemainingWeight,
				ThresholdGrams:  j.threshold,
			},
		})
		return err
	})
	return created, err
}
