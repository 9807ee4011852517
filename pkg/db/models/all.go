package models

// All lists every persisted model, in dependency order, for schema bootstrap in
// SQLite-backed development and tests.
func All() []any {
	return []any{
		&Organization{},
		&FeeType{},
		&Application{},
		&LedgerEntry{},
		&LedgerPayment{},
		&Trainee{},
		&HostelAllocation{},
		&User{},
		&UserRole{},
		&ProvisioningRecord{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&Notification{},
	}
}
