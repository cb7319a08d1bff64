package models

// Balance records that Debtor owes Creditor Amount within a group.
// For any pair of participants at most one direction exists at a time.
type Balance struct {
	// ID is the unique identifier for the balance row (UUID format).
	ID string

	GroupID string

	DebtorID   string
	DebtorName string

	CreditorID   string
	CreditorName string

	// Amount is always positive and rounded to two decimals.
	Amount float64

	// Position is the row's place in the order the group's balances were
	// written: rebuilds number rows from zero, adjustments append.
	Position int

	CreatedAt int64
	UpdatedAt int64
}

// PartyRef identifies a participant together with a display name snapshot.
type PartyRef struct {
	ID   string
	Name string
}

// PairAdjustment is the write set of a manual balance adjustment.
// Delete is applied before Upsert.
type PairAdjustment struct {
	// Upsert is the row to insert (empty ID) or update in place. May be nil.
	Upsert *Balance

	// Delete is the row to remove. May be nil.
	Delete *Balance
}

// SettlementSuggestion is a proposed payment. It is computed on demand and never stored.
type SettlementSuggestion struct {
	FromID   string
	FromName string
	ToID     string
	ToName   string
	Amount   float64
}
