package enums

import (
	"fmt"
	"strings"
)

// StockOperation is a manual stock correction accepted by the gateway.
type StockOperation string

const (
	StockOperationAdd       StockOperation = "ADD"
	StockOperationRemove    StockOperation = "REMOVE"
	StockOperationReserve   StockOperation = "RESERVE"
	StockOperationUnreserve StockOperation = "UNRESERVE"
)

var validStockOperations = []StockOperation{
	StockOperationAdd,
	StockOperationRemove,
	StockOperationReserve,
	StockOperationUnreserve,
}

// String implements fmt.Stringer.
func (o StockOperation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known StockOperation.
func (o StockOperation) IsValid() bool {
	for _, candidate := range validStockOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// WritesLedger reports whether the operation changes available stock.
// Reservation is derived from order lines, so RESERVE/UNRESERVE only audit.
func (o StockOperation) WritesLedger() bool {
	return o == StockOperationAdd || o == StockOperationRemove
}

// ParseStockOperation converts raw input (case-insensitive) into a StockOperation.
func ParseStockOperation(value string) (StockOperation, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validStockOperations {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock operation %q", value)
}
