package api

type Balance struct {
	Id           string  `json:"id"`
	GroupId      string  `json:"groupId"`
	DebtorId     string  `json:"debtorId"`
	DebtorName   string  `json:"debtorName"`
	CreditorId   string  `json:"creditorId"`
	CreditorName string  `json:"creditorName"`
	Amount       float64 `json:"amount"`
	UpdatedAt    int64   `json:"updatedAt"`
}

type GetBalancesRequest struct {
	GroupId string `json:"groupId"`
}

type GetBalancesResponse struct {
	// Balances are sorted by amount, largest first.
	Balances []*Balance `json:"balances"`
	// TotalOwed is what others owe the caller; TotalOwes is what the caller owes.
	TotalOwed float64 `json:"totalOwed"`
	TotalOwes float64 `json:"totalOwes"`
}

type SettlementSuggestion struct {
	FromId   string  `json:"fromId"`
	FromName string  `json:"fromName"`
	ToId     string  `json:"toId"`
	ToName   string  `json:"toName"`
	Amount   float64 `json:"amount"`
}

type GetSettlementSuggestionsRequest struct {
	GroupId string `json:"groupId"`
}

type GetSettlementSuggestionsResponse struct {
	Message          string                  `json:"message"`
	Settlements      []*SettlementSuggestion `json:"settlements"`
	TotalOutstanding float64                 `json:"totalOutstanding"`
}

// AdjustBalanceRequest records that From owes To Amount more.
type AdjustBalanceRequest struct {
	GroupId     string  `json:"groupId"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

type AdjustBalanceResponse struct {
	Message string `json:"message"`
	// Balance is the row left for the pair, or nil when the pair is now settled.
	Balance *Balance `json:"balance,omitempty"`
}
