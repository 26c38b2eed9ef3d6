package models

// All lists every persisted model in dependency order. Schema changes for
// postgres go through goose; sqlite databases are built from this list.
func All() []any {
	return []any{
		&Product{},
		&ProductFilament{},
		&InventoryRecord{},
		&Customer{},
		&Order{},
		&OrderItem{},
		&Filament{},
		&FilamentUsage{},
		&AuditEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
