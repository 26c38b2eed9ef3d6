package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox/payloads"
)

const (
	entityProduct = "product"
	entityOrder   = "order"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Sink records stock and order history. Every call runs in its own short
// transaction after the caller committed; failures are logged and dropped.
type Sink struct {
	tx      txRunner
	outbox  eventEmitter
	logg    *logger.Logger
	service string
}

// NewSink wires the audit sink. service names the emitting process in event envelopes.
func NewSink(tx txRunner, emitter eventEmitter, logg *logger.Logger, service string) (*Sink, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Sink{tx: tx, outbox: emitter, logg: logg, service: service}, nil
}

// RecordStockEvent logs a stock movement for a product.
func (s *Sink) RecordStockEvent(ctx context.Context, productID uuid.UUID, operation string, quantity int, orderID *uuid.UUID) {
	qty := quantity
	row := models.AuditEvent{
		EntityType: entityProduct,
		EntityID:   productID,
		Operation:  operation,
		Quantity:   &qty,
		OrderID:    orderID,
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventStockChanged,
		AggregateType: enums.AggregateProduct,
		AggregateID:   productID,
		Data: payloads.StockChangedEvent{
			ProductID: productID,
			Operation: operation,
			Quantity:  quantity,
			OrderID:   orderID,
		},
	}
	if err := s.write(ctx, row, event); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id": productID.String(),
			"operation":  operation,
			"quantity":   quantity,
		})
		s.logg.Error(logCtx, "audit stock event failed", err)
	}
}

// RecordOrderEvent logs an order-level event. details is stored verbatim and
// becomes the published payload.
func (s *Sink) RecordOrderEvent(ctx context.Context, orderID uuid.UUID, event enums.OutboxEventType, details any) {
	data, err := json.Marshal(details)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", orderID.String()), "audit order event encode failed", err)
		return
	}
	id := orderID
	row := models.AuditEvent{
		EntityType: entityOrder,
		EntityID:   orderID,
		Operation:  string(event),
		OrderID:    &id,
		Details:    data,
	}
	domainEvent := outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          details,
	}
	if err := s.write(ctx, row, domainEvent); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   orderID.String(),
			"event_type": event,
		})
		s.logg.Error(logCtx, "audit order event failed", err)
	}
}

func (s *Sink) write(ctx context.Context, row models.AuditEvent, event outbox.DomainEvent) error {
	event.Actor = &outbox.ActorRef{
		Service:   s.service,
		RequestID: logger.RequestIDFromContext(ctx),
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}
