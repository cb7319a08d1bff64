package api

type Share struct {
	ParticipantId string  `json:"participantId"`
	Name          string  `json:"name,omitempty"`
	Amount        float64 `json:"amount"`
	Percentage    float64 `json:"percentage,omitempty"`
}

type Expense struct {
	Id          string   `json:"id"`
	GroupId     string   `json:"groupId"`
	Amount      float64  `json:"amount"`
	Description string   `json:"description"`
	Date        int64    `json:"date"`
	PayerId     string   `json:"payerId"`
	PayerName   string   `json:"payerName"`
	SplitMode   string   `json:"splitMode"`
	Shares      []*Share `json:"shares"`
	Notes       string   `json:"notes,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
}

type CreateExpenseRequest struct {
	GroupId     string  `json:"groupId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	// Date is a Unix timestamp. Zero means now.
	Date int64 `json:"date,omitempty"`
	// PayerId defaults to the caller's participant.
	PayerId string `json:"payerId,omitempty"`
	// SplitMode is equal, percentage or custom. Empty means equal.
	SplitMode string   `json:"splitMode,omitempty"`
	Shares    []*Share `json:"shares"`
	Notes     string   `json:"notes,omitempty"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

// ListExpensesRequest filters a group's expenses. Zero fields are ignored.
type ListExpensesRequest struct {
	GroupId       string  `json:"groupId"`
	ParticipantId string  `json:"participantId,omitempty"`
	StartDate     int64   `json:"startDate,omitempty"`
	EndDate       int64   `json:"endDate,omitempty"`
	MinAmount     float64 `json:"minAmount,omitempty"`
	MaxAmount     float64 `json:"maxAmount,omitempty"`
	Search        string  `json:"search,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetExpenseRequest struct {
	ExpenseId string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

// UpdateExpenseRequest changes only the fields that are set. Shares are
// re-normalized when shares, amount or split mode change.
type UpdateExpenseRequest struct {
	ExpenseId   string   `json:"expenseId"`
	Amount      *float64 `json:"amount,omitempty"`
	Description *string  `json:"description,omitempty"`
	Date        *int64   `json:"date,omitempty"`
	PayerId     *string  `json:"payerId,omitempty"`
	SplitMode   *string  `json:"splitMode,omitempty"`
	Shares      []*Share `json:"shares,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseId string `json:"expenseId"`
}

type DeleteExpenseResponse struct{}
