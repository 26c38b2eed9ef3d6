package enums

import (
	"fmt"
	"strings"
)

// LineStatus is the manufacturing state of an order line. Values are stored
// verbatim in order_items.status.
type LineStatus string

const (
	LineStatusAwaitingApproval LineStatus = "onay_bekliyor"
	LineStatusInProduction     LineStatus = "uretiliyor"
	LineStatusProduced         LineStatus = "uretildi"
	LineStatusPreparing        LineStatus = "hazirlaniyor"
	LineStatusReady            LineStatus = "hazirlandi"
)

// validLineStatuses is ordered; a line only ever moves towards the end.
var validLineStatuses = []LineStatus{
	LineStatusAwaitingApproval,
	LineStatusInProduction,
	LineStatusProduced,
	LineStatusPreparing,
	LineStatusReady,
}

// LineStatusLabels is the display dictionary shown to operators and written
// onto the order header.
var LineStatusLabels = newLabelTable(map[LineStatus]string{
	LineStatusAwaitingApproval: "Onay Bekliyor",
	LineStatusInProduction:     "Üretimde",
	LineStatusProduced:         "Üretildi",
	LineStatusPreparing:        "Hazırlanıyor",
	LineStatusReady:            "Hazırlandı",
})

// LabelTable is a read-only bidirectional status/label lookup.
type LabelTable struct {
	toLabel  map[LineStatus]string
	toStatus map[string]LineStatus
}

func newLabelTable(entries map[LineStatus]string) LabelTable {
	t := LabelTable{
		toLabel:  make(map[LineStatus]string, len(entries)),
		toStatus: make(map[string]LineStatus, len(entries)),
	}
	for status, label := range entries {
		t.toLabel[status] = label
		t.toStatus[label] = status
	}
	return t
}

// Label returns the display label for status.
func (t LabelTable) Label(status LineStatus) (string, bool) {
	label, ok := t.toLabel[status]
	return label, ok
}

// Status resolves a display label back to its status.
func (t LabelTable) Status(label string) (LineStatus, bool) {
	status, ok := t.toStatus[label]
	return status, ok
}

// Len reports the number of entries.
func (t LabelTable) Len() int {
	return len(t.toLabel)
}

// String implements fmt.Stringer.
func (s LineStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LineStatus.
func (s LineStatus) IsValid() bool {
	return s.Rank() >= 0
}

// Rank returns the position of the status along the production flow, or -1.
func (s LineStatus) Rank() int {
	for i, candidate := range validLineStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Label returns the display label, falling back to the raw value.
func (s LineStatus) Label() string {
	if label, ok := LineStatusLabels.Label(s); ok {
		return label
	}
	return string(s)
}

// IsActive reports whether a line in this status still counts towards
// reserved stock. Ready lines are fulfilled.
func (s LineStatus) IsActive() bool {
	return s.IsValid() && s != LineStatusReady
}

// IsInFlight reports whether the line is mid-manufacture, which blocks
// deleting its order.
func (s LineStatus) IsInFlight() bool {
	switch s {
	case LineStatusInProduction, LineStatusProduced, LineStatusPreparing:
		return true
	default:
		return false
	}
}

// IsFulfillmentStage reports whether stock has been committed to the line.
func (s LineStatus) IsFulfillmentStage() bool {
	return s == LineStatusPreparing || s == LineStatusReady
}

// ActiveLineStatuses lists the statuses counted by reservation.
func ActiveLineStatuses() []LineStatus {
	out := make([]LineStatus, 0, len(validLineStatuses)-1)
	for _, s := range validLineStatuses {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// ActiveLineStatusValues returns ActiveLineStatuses as raw strings for SQL IN clauses.
func ActiveLineStatusValues() []string {
	active := ActiveLineStatuses()
	out := make([]string, len(active))
	for i, s := range active {
		out[i] = string(s)
	}
	return out
}

// ParseLineStatus converts a raw enum value into a LineStatus.
func ParseLineStatus(value string) (LineStatus, error) {
	for _, candidate := range validLineStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line status %q", value)
}

// ParseLineStatusLabel accepts either a display label or a raw enum value.
func ParseLineStatusLabel(value string) (LineStatus, error) {
	trimmed := strings.TrimSpace(value)
	if status, ok := LineStatusLabels.Status(trimmed); ok {
		return status, nil
	}
	if status, err := ParseLineStatus(trimmed); err == nil {
		return status, nil
	}
	return "", fmt.Errorf("unknown line status label %q", value)
}
