package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector exported by the service.
const Namespace = "printfarm"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// FulfillmentMetrics tracks line transitions, filament draw and manual stock operations.
type FulfillmentMetrics struct {
	transitions *prometheus.CounterVec
	filament    *prometheus.CounterVec
	stockOps    *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment collectors on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "fulfillment_transitions_total",
		Help:      "Order line status transitions by target status and outcome.",
	}, []string{"target", "result"})
	filament := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "filament_consumed_grams_total",
		Help:      "Grams of filament drawn from spools.",
	}, []string{"type", "color"})
	stockOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "stock_operations_total",
		Help:      "Manual stock operations by operation and outcome.",
	}, []string{"operation", "result"})
	reg.MustRegister(transitions, filament, stockOps)
	return &FulfillmentMetrics{
		transitions: transitions,
		filament:    filament,
		stockOps:    stockOps,
	}
}

// ObserveTransition counts one transition attempt.
func (m *FulfillmentMetrics) ObserveTransition(target string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(target), resultLabel(err)).Inc()
}

// AddFilamentGrams adds consumed grams for a filament type and color.
func (m *FulfillmentMetrics) AddFilamentGrams(filamentType, color string, grams float64) {
	if m == nil || m.filament == nil || grams <= 0 {
		return
	}
	m.filament.WithLabelValues(normalizeLabel(filamentType), normalizeLabel(color)).Add(grams)
}

// ObserveStockOperation counts one gateway call.
func (m *FulfillmentMetrics) ObserveStockOperation(operation string, err error) {
	if m == nil || m.stockOps == nil {
		return
	}
	m.stockOps.WithLabelValues(normalizeLabel(operation), resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
