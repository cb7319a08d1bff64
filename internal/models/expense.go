package models

import "fmt"

// SplitMode is the rule by which an expense total is divided among participants.
type SplitMode string

const (
	SplitEqual      SplitMode = "equal"
	SplitPercentage SplitMode = "percentage"
	SplitCustom     SplitMode = "custom"
)

// ParseSplitMode validates a split mode string. An empty string means equal.
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(s) {
	case "":
		return SplitEqual, nil
	case SplitEqual, SplitPercentage, SplitCustom:
		return SplitMode(s), nil
	}
	return "", fmt.Errorf("unknown split mode %q", s)
}

// Share is one participant's portion of an expense.
type Share struct {
	// ParticipantID references Participant.ID in the expense's group.
	ParticipantID string

	// Name is the participant's display name at the time the expense was written.
	Name string

	// Amount is what this participant owes toward the expense (>= 0).
	Amount float64

	// Percentage is the requested share for percentage splits. Zero otherwise.
	Percentage float64
}

// Expense is a payment made by one participant on behalf of the group.
// Invariant: the share amounts sum to Amount within one cent.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	GroupID string

	// Amount is the positive total, in currency units with two decimals.
	Amount float64

	Description string

	// Date is the Unix timestamp of when the expense happened.
	Date int64

	// PayerID is the participant who paid. PayerName is the snapshot of their name.
	PayerID   string
	PayerName string

	SplitMode SplitMode

	// Shares are ordered; the first share absorbs rounding residuals.
	Shares []Share

	Notes string

	CreatedAt int64
	UpdatedAt int64
}

// ExpenseFilter narrows an expense listing. Zero values are ignored.
type ExpenseFilter struct {
	GroupID       string
	ParticipantID string
	StartDate     int64
	EndDate       int64
	MinAmount     float64
	MaxAmount     float64
	// Search matches description or notes, case-insensitive.
	Search string
}
