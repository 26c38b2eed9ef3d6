package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/internal/inventory"
	"github.com/angelmondragon/printfarm-backend/internal/pricing"
	product "github.com/angelmondragon/printfarm-backend/internal/products"
	"github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/metrics"
	"github.com/angelmondragon/printfarm-backend/pkg/outbox/payloads"
)

const customerOrderPrefix = "ORD-"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the order fulfillment operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, code string) (*OrderDTO, error)
	TransitionLine(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) (*DeleteResult, error)
}

// ServiceParams groups the collaborators of the order service.
type ServiceParams struct {
	TX                   txRunner
	Repository           Repository
	Catalog              *product.Catalog
	Depot                *filaments.Depot
	Ledger               inventory.Ledger
	Pricer               pricing.Pricer
	Auditor              Auditor
	Metrics              *metrics.FulfillmentMetrics
	Logger               *logger.Logger
	LegacyStatusFallback bool
}

type service struct {
	tx             txRunner
	repo           Repository
	catalog        *product.Catalog
	depot          *filaments.Depot
	ledger         inventory.Ledger
	pricer         pricing.Pricer
	auditor        Auditor
	metrics        *metrics.FulfillmentMetrics
	logg           *logger.Logger
	legacyFallback bool
	newCode        func(prefix string) string
}

// NewService validates and wires the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Depot == nil {
		return nil, fmt.Errorf("filament depot required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Pricer == nil {
		return nil, fmt.Errorf("pricer required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("auditor required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:             params.TX,
		repo:           params.Repository,
		catalog:        params.Catalog,
		depot:          params.Depot,
		ledger:         params.Ledger,
		pricer:         params.Pricer,
		auditor:        params.Auditor,
		metrics:        params.Metrics,
		logg:           params.Logger,
		legacyFallback: params.LegacyStatusFallback,
		newCode:        generateOrderCode,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}

	code := strings.TrimSpace(input.Code)
	if code == "" {
		prefix := customerOrderPrefix
		if input.CustomerID == nil {
			prefix = models.StockOrderPrefix
		}
		code = s.newCode(prefix)
	}
	ctx = s.logg.WithOrderCode(ctx, code)

	order := &models.Order{
		Code:       code,
		CustomerID: input.CustomerID,
		Status:     enums.LineStatusAwaitingApproval.Label(),
		TotalPrice: decimal.Zero,
	}
	for i, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product id is required", i+1))
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be greater than zero", i+1))
		}
		unitPrice, err := s.pricer.UnitPrice(ctx, input.CustomerID, line.ProductID, line.Quantity, line.FilamentType)
		if err != nil {
			return nil, err
		}
		productID := line.ProductID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    &productID,
			Quantity:     line.Quantity,
			UnitPrice:    unitPrice,
			FilamentType: line.FilamentType,
			Status:       enums.LineStatusAwaitingApproval,
		})
		order.TotalPrice = order.TotalPrice.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order %s already exists", code))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.RecordOrderEvent(ctx, order.ID, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:    order.ID,
		OrderCode:  order.Code,
		LineCount:  len(order.Items),
		TotalPrice: order.TotalPrice,
		StockOrder: order.IsStockOrder(),
	})
	s.logg.Info(ctx, "order created")
	return toOrderDTO(order), nil
}

func (s *service) GetOrder(ctx context.Context, code string) (*OrderDTO, error) {
	order, err := s.repo.FindOrderDetail(ctx, code)
	if err != nil {
		return nil, mapOrderLookupError(err, code)
	}
	return toOrderDTO(order), nil
}

type transitionOutcome struct {
	order        *models.Order
	line         models.OrderItem
	from         enums.LineStatus
	orderStatus  string
	consumptions []filaments.Consumption
	stockChange  int
}

// TransitionLine moves one line to the requested status, drawing filament and
// adjusting inventory when the move crosses the matching guard. Every write
// happens in one transaction.
func (s *service) TransitionLine(ctx context.Context, input TransitionInput) (result *TransitionResult, err error) {
	ctx = s.logg.WithLineID(s.logg.WithOrderCode(ctx, input.OrderCode), input.LineID.String())
	ctx = s.logg.WithField(ctx, "target_status", input.TargetStatus)

	target, err := s.resolveTarget(input.TargetStatus)
	if err != nil {
		s.metrics.ObserveTransition(input.TargetStatus, err)
		return nil, err
	}
	defer func() {
		s.metrics.ObserveTransition(target.String(), err)
	}()

	var out transitionOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		out, txErr = s.transitionTx(ctx, tx, input, target)
		return txErr
	})
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("line transition rejected: %v", err))
		return nil, err
	}

	s.afterTransition(ctx, out, target)

	message := fmt.Sprintf("Line moved to %s", target.Label())
	if out.from == target {
		message = fmt.Sprintf("Line already %s", target.Label())
	}
	return &TransitionResult{
		Success:      true,
		Message:      message,
		Line:         toLineDTO(out.line),
		OrderStatus:  out.orderStatus,
		Consumptions: out.consumptions,
		StockChange:  out.stockChange,
	}, nil
}

func (s *service) resolveTarget(raw string) (enums.LineStatus, error) {
	target, err := enums.ParseLineStatusLabel(raw)
	if err == nil {
		return target, nil
	}
	if s.legacyFallback {
		return enums.LineStatusAwaitingApproval, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown line status %q", raw))
}

func (s *service) transitionTx(ctx context.Context, tx *gorm.DB, input TransitionInput, target enums.LineStatus) (transitionOutcome, error) {
	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrderByCode(ctx, input.OrderCode)
	if err != nil {
		return transitionOutcome{}, mapOrderLookupError(err, input.OrderCode)
	}
	line, err := repo.LockOrderLine(ctx, input.LineID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return transitionOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line")
	}
	if line == nil || line.OrderID != order.ID {
		return transitionOutcome{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("line %s not found on order %s", input.LineID, order.Code))
	}

	current := line.Status
	if target.Rank() < current.Rank() {
		return transitionOutcome{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("line cannot move back from %s to %s", current.Label(), target.Label())).
			WithDetails(map[string]any{"from": current, "to": target})
	}

	requested, err := s.requestedUnits(ctx, tx, line, input)
	if err != nil {
		return transitionOutcome{}, err
	}

	out := transitionOutcome{order: order, from: current}
	lineUpdates := map[string]any{"status": target}
	orderUpdates := map[string]any{"skip_production": input.SkipProduction}
	if requested > 0 {
		lineUpdates["production_quantity"] = requested
		orderUpdates["production_quantity"] = requested
		line.ProductionQuantity = requested
	}

	if needsFilament(current, target, input.SkipProduction) && line.ProductID != nil {
		units := requested
		if units <= 0 {
			units = line.Quantity
		}
		bom, err := s.catalog.WithTx(tx).BillOfMaterial(ctx, *line.ProductID)
		if err != nil {
			return transitionOutcome{}, err
		}
		orderID := order.ID
		out.consumptions, err = s.depot.WithTx(tx).Consume(ctx, filaments.ConsumeRequest{
			ProductID:      *line.ProductID,
			OrderID:        &orderID,
			Units:          units,
			BillOfMaterial: bom,
			SelectedSpools: input.SelectedSpools,
			Description:    fmt.Sprintf("Order %s production", order.Code),
		})
		if err != nil {
			return transitionOutcome{}, err
		}
	}

	if needsStock(current, target, input.SkipProduction) && line.ProductID != nil {
		change, allocated, err := s.adjustStock(ctx, tx, order, line, requested, input.SkipProduction)
		if err != nil {
			return transitionOutcome{}, err
		}
		out.stockChange = change
		lineUpdates["stock_allocated"] = allocated
		line.StockAllocated = allocated
	}

	if err := repo.UpdateOrderLine(ctx, line.ID, lineUpdates); err != nil {
		return transitionOutcome{}, mapLineWriteError(err)
	}
	if err := repo.UpdateOrder(ctx, order.ID, orderUpdates); err != nil {
		return transitionOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	line.Status = target

	out.orderStatus, err = s.syncOrderStatus(ctx, repo, order)
	if err != nil {
		return transitionOutcome{}, err
	}
	out.line = *line
	return out, nil
}

// requestedUnits resolves the production size asked for by the caller.
// Batches win over a raw quantity.
func (s *service) requestedUnits(ctx context.Context, tx *gorm.DB, line *models.OrderItem, input TransitionInput) (int, error) {
	if input.ProductionBatches > 0 && line.ProductID != nil {
		p, err := s.catalog.WithTx(tx).Get(ctx, *line.ProductID)
		if err != nil {
			return 0, err
		}
		return product.UnitsForBatches(p, input.ProductionBatches), nil
	}
	if input.ProductionQuantity > 0 {
		return input.ProductionQuantity, nil
	}
	return 0, nil
}

// adjustStock applies the inventory side of a move into the fulfillment
// stages. It returns the ledger delta and the units now covering the line.
func (s *service) adjustStock(ctx context.Context, tx *gorm.DB, order *models.Order, line *models.OrderItem, requested int, fromStock bool) (int, int, error) {
	ledger := s.ledger.WithTx(tx)
	productID := *line.ProductID

	have, _, err := ledger.LockQuantity(ctx, productID)
	if err != nil {
		return 0, 0, err
	}

	if fromStock {
		used := min(have, line.Quantity)
		if used <= 0 {
			return 0, 0, nil
		}
		if err := ledger.Subtract(ctx, productID, used); err != nil {
			return 0, 0, err
		}
		return -used, used, nil
	}

	produced := requested
	if produced <= 0 {
		produced = line.ProductionQuantity
	}
	if produced <= 0 {
		produced = line.Quantity
	}

	net := produced - line.Quantity
	allocated := line.Quantity
	if order.IsStockOrder() {
		net = produced
		allocated = 0
	}
	if err := ledger.Add(ctx, productID, net); err != nil {
		return 0, 0, err
	}
	return net, allocated, nil
}

// syncOrderStatus mirrors the lines onto the header when they all agree.
func (s *service) syncOrderStatus(ctx context.Context, repo Repository, order *models.Order) (string, error) {
	statuses, err := repo.ListLineStatuses(ctx, order.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list line statuses")
	}
	distinct := make(map[enums.LineStatus]struct{}, len(statuses))
	for _, status := range statuses {
		distinct[status] = struct{}{}
	}
	if len(distinct) != 1 {
		return order.Status, nil
	}
	label := statuses[0].Label()
	if label == order.Status {
		return label, nil
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": label}); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = label
	return label, nil
}

func (s *service) afterTransition(ctx context.Context, out transitionOutcome, target enums.LineStatus) {
	for _, c := range out.consumptions {
		s.metrics.AddFilamentGrams(c.Type, c.Color, c.Grams.InexactFloat64())
	}
	if out.from == target {
		s.logg.Info(ctx, "line transition was a no-op")
		return
	}

	orderID := out.order.ID
	if out.stockChange != 0 && out.line.ProductID != nil {
		op, qty := enums.StockOperationAdd, out.stockChange
		if qty < 0 {
			op, qty = enums.StockOperationRemove, -qty
		}
		s.auditor.RecordStockEvent(ctx, *out.line.ProductID, op.String(), qty, &orderID)
	}
	s.auditor.RecordOrderEvent(ctx, orderID, enums.EventLineStatusChanged, payloads.LineStatusChangedEvent{
		OrderID:     orderID,
		OrderCode:   out.order.Code,
		LineID:      out.line.ID,
		ProductID:   out.line.ProductID,
		From:        out.from,
		To:          target,
		StockChange: out.stockChange,
		OrderStatus: out.orderStatus,
	})
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":         out.from.String(),
		"stock_change": out.stockChange,
		"consumptions": len(out.consumptions),
	}), "line transitioned")
}

// DeleteOrder removes an order whose lines are not mid-manufacture. Ready
// lines give their units back to the ledger; consumed filament stays consumed.
func (s *service) DeleteOrder(ctx context.Context, orderID uuid.UUID) (*DeleteResult, error) {
	ctx = s.logg.WithField(ctx, "order_id", orderID.String())

	result := &DeleteResult{OrderID: orderID}
	var restored []models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			return mapOrderLookupError(err, orderID.String())
		}
		result.OrderCode = order.Code

		lines, err := repo.LockOrderLines(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order lines")
		}
		var blocking []string
		for _, line := range lines {
			if line.Status.IsInFlight() {
				blocking = append(blocking, line.ID.String())
			}
		}
		if len(blocking) > 0 {
			return pkgerrors.New(pkgerrors.CodeBlocked, fmt.Sprintf("order %s has lines in production and cannot be deleted", order.Code)).
				WithDetails(map[string]any{"blockingLines": blocking})
		}

		ledger := s.ledger.WithTx(tx)
		for _, line := range lines {
			if line.Status != enums.LineStatusReady || line.ProductID == nil {
				continue
			}
			if err := ledger.Add(ctx, *line.ProductID, line.Quantity); err != nil {
				return err
			}
			restored = append(restored, line)
			result.RestoredUnits += line.Quantity
		}
		result.RestoredLines = len(restored)

		if err := repo.DeleteOrderLines(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order lines")
		}
		if err := repo.DeleteOrder(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("order deletion rejected: %v", err))
		return nil, err
	}

	for _, line := range restored {
		s.auditor.RecordStockEvent(ctx, *line.ProductID, enums.StockOperationAdd.String(), line.Quantity, &orderID)
	}
	s.auditor.RecordOrderEvent(ctx, orderID, enums.EventOrderDeleted, payloads.OrderDeletedEvent{
		OrderID:       orderID,
		OrderCode:     result.OrderCode,
		RestoredLines: result.RestoredLines,
		RestoredUnits: result.RestoredUnits,
	})
	s.logg.Info(s.logg.WithOrderCode(ctx, result.OrderCode), "order deleted")
	return result, nil
}

// needsFilament reports whether the move starts production.
func needsFilament(current, target enums.LineStatus, skip bool) bool {
	return target == enums.LineStatusInProduction && current != enums.LineStatusInProduction && !skip
}

// needsStock reports whether the move touches the inventory ledger: entering
// the fulfillment stages for the first time, or preparing straight from stock.
// Re-saving the current status never adjusts stock, so retries stay idempotent.
func needsStock(current, target enums.LineStatus, skip bool) bool {
	if current == target {
		return false
	}
	if target.IsFulfillmentStage() && !current.IsFulfillmentStage() {
		return true
	}
	return skip && target == enums.LineStatusPreparing
}

func mapOrderLookupError(err error, ref string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", ref))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func mapLineWriteError(err error) error {
	if db.IsCheckViolation(err) {
		return pkgerrors.New(pkgerrors.CodeValidation, "order line update violates a constraint")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order line")
}

func generateOrderCode(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(raw[:10])
}
