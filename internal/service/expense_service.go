package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

const (
	msgGroupSettled      = "Group is settled - no outstanding balances"
	msgSettlementsReady  = "Settlement suggestions computed"
	msgBalanceAdjusted   = "Balance adjusted"
	msgBalanceNowSettled = "Balance adjusted - the pair is now settled"
)

// ExpenseService implements the Connect ExpenseService: expenses, balances
// and settlement suggestions.
type ExpenseService struct {
	apiconnect.UnimplementedExpenseServiceHandler
	store    storage.Store
	ledger   *Ledger
	strategy calculator.Strategy
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewExpenseService creates an ExpenseService. An empty strategy means first-seen.
func NewExpenseService(store storage.Store, ledger *Ledger, strategy calculator.Strategy, m *metrics.Metrics, logger *slog.Logger) *ExpenseService {
	if strategy == "" {
		strategy = calculator.StrategyFirstSeen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{
		store:    store,
		ledger:   ledger,
		strategy: strategy,
		metrics:  m,
		logger:   logger,
	}
}

// CreateExpense records an expense and rebuilds the group's balances.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	msg := req.Msg
	s.logger.Info("CreateExpense request received",
		"group_id", msg.GroupId,
		"amount", msg.Amount,
		"split_mode", msg.SplitMode,
		"shares_count", len(msg.Shares),
	)

	group, err := loadGroup(ctx, s.store, msg.GroupId, false)
	if err != nil {
		return nil, err
	}
	userID, _ := callerID(ctx)

	mode, err := models.ParseSplitMode(msg.SplitMode)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}
	description := strings.TrimSpace(msg.Description)
	if description == "" {
		return nil, invalidArgument("description is required")
	}

	payer, err := resolvePayer(group, msg.PayerId, userID)
	if err != nil {
		return nil, err
	}

	shares := sharesFromAPI(msg.Shares, group)
	if len(shares) == 0 && mode == models.SplitEqual {
		shares = everyoneShares(group)
	}
	if err := checkDistinctShares(shares); err != nil {
		return nil, err
	}

	normalized, err := s.normalize(shares, msg.Amount, mode)
	if err != nil {
		return nil, err
	}

	date := msg.Date
	if date == 0 {
		date = time.Now().Unix()
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Amount:      calculator.RoundAmount(msg.Amount),
		Description: description,
		Date:        date,
		PayerID:     payer.ID,
		PayerName:   payer.Name,
		SplitMode:   mode,
		Shares:      normalized,
		Notes:       msg.Notes,
	}

	err = s.ledger.Mutate(ctx, group.ID, func(ctx context.Context) error {
		return s.store.CreateExpense(ctx, expense)
	})
	if err != nil {
		s.logger.Error("CreateExpense failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", group.ID,
		"payer_id", payer.ID,
		"amount", expense.Amount,
	)
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses returns the group's expenses matching the filter, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	msg := req.Msg
	group, err := loadGroup(ctx, s.store, msg.GroupId, false)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.SearchExpenses(ctx, models.ExpenseFilter{
		GroupID:       group.ID,
		ParticipantID: msg.ParticipantId,
		StartDate:     msg.StartDate,
		EndDate:       msg.EndDate,
		MinAmount:     msg.MinAmount,
		MaxAmount:     msg.MaxAmount,
		Search:        strings.TrimSpace(msg.Search),
	})
	if err != nil {
		s.logger.Error("ListExpenses failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("ListExpenses successful", "group_id", group.ID, "count", len(expenses))
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: toAPIExpenses(expenses)}), nil
}

// GetExpense returns a single expense of a group the caller belongs to.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	expense, _, err := s.loadExpense(ctx, req.Msg.ExpenseId)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// UpdateExpense changes the fields that are set and rebuilds the group's
// balances. Only the group owner or the payer may do this.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	msg := req.Msg
	s.logger.Info("UpdateExpense request received", "expense_id", msg.ExpenseId)

	current, group, err := s.loadExpense(ctx, msg.ExpenseId)
	if err != nil {
		return nil, err
	}
	if err := checkOwnerOrPayer(ctx, group, current); err != nil {
		return nil, err
	}

	var updated *models.Expense
	err = s.ledger.Mutate(ctx, group.ID, func(ctx context.Context) error {
		// Re-read under the lock so concurrent edits are not lost.
		expense, err := s.store.GetExpense(ctx, msg.ExpenseId)
		if err != nil {
			return err
		}
		if err := s.applyUpdate(expense, group, msg); err != nil {
			return err
		}
		updated = expense
		return s.store.UpdateExpense(ctx, expense)
	})
	if err != nil {
		s.logger.Warn("UpdateExpense failed", "expense_id", msg.ExpenseId, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Expense updated", "expense_id", updated.ID, "group_id", group.ID)
	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: toAPIExpense(updated)}), nil
}

// applyUpdate merges the set fields of msg into expense and re-normalizes
// the shares when the split inputs changed.
func (s *ExpenseService) applyUpdate(expense *models.Expense, group *models.Group, msg *api.UpdateExpenseRequest) error {
	resplit := len(msg.Shares) > 0

	if msg.Amount != nil && *msg.Amount != expense.Amount {
		expense.Amount = calculator.RoundAmount(*msg.Amount)
		resplit = true
	}
	if msg.SplitMode != nil {
		mode, err := models.ParseSplitMode(*msg.SplitMode)
		if err != nil {
			return invalidArgument("%v", err)
		}
		if mode != expense.SplitMode {
			expense.SplitMode = mode
			resplit = true
		}
	}
	if msg.Description != nil {
		description := strings.TrimSpace(*msg.Description)
		if description == "" {
			return invalidArgument("description is required")
		}
		expense.Description = description
	}
	if msg.Date != nil {
		expense.Date = *msg.Date
	}
	if msg.Notes != nil {
		expense.Notes = *msg.Notes
	}
	if msg.PayerId != nil {
		payer, ok := group.Participant(*msg.PayerId)
		if !ok {
			return invalidArgument("payer %s is not a participant of the group", *msg.PayerId)
		}
		expense.PayerID = payer.ID
		expense.PayerName = payer.Name
	}

	if !resplit {
		return nil
	}

	shares := expense.Shares
	if len(msg.Shares) > 0 {
		shares = sharesFromAPI(msg.Shares, group)
		if err := checkDistinctShares(shares); err != nil {
			return err
		}
	}
	normalized, err := s.normalize(shares, expense.Amount, expense.SplitMode)
	if err != nil {
		return err
	}
	expense.Shares = normalized
	return nil
}

// DeleteExpense removes an expense and rebuilds the group's balances.
// Only the group owner or the payer may do this.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	expense, group, err := s.loadExpense(ctx, req.Msg.ExpenseId)
	if err != nil {
		return nil, err
	}
	if err := checkOwnerOrPayer(ctx, group, expense); err != nil {
		return nil, err
	}

	err = s.ledger.Mutate(ctx, group.ID, func(ctx context.Context) error {
		return s.store.DeleteExpense(ctx, expense.ID)
	})
	if err != nil {
		s.logger.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Expense deleted", "expense_id", expense.ID, "group_id", group.ID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// GetBalances returns the group's balances and the caller's totals.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	group, err := loadGroup(ctx, s.store, req.Msg.GroupId, false)
	if err != nil {
		return nil, err
	}
	userID, _ := callerID(ctx)

	balances, err := s.store.ListBalancesByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetBalances failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	var owed, owes []float64
	if me, ok := group.ParticipantByUser(userID); ok {
		for _, b := range balances {
			switch me.ID {
			case b.CreditorID:
				owed = append(owed, b.Amount)
			case b.DebtorID:
				owes = append(owes, b.Amount)
			}
		}
	}

	s.logger.Debug("GetBalances successful", "group_id", group.ID, "balances_count", len(balances))
	return connect.NewResponse(&api.GetBalancesResponse{
		Balances:  toAPIBalances(balances),
		TotalOwed: calculator.SumAmounts(owed...),
		TotalOwes: calculator.SumAmounts(owes...),
	}), nil
}

// GetSettlementSuggestions proposes payments that would settle the group.
func (s *ExpenseService) GetSettlementSuggestions(ctx context.Context, req *connect.Request[api.GetSettlementSuggestionsRequest]) (*connect.Response[api.GetSettlementSuggestionsResponse], error) {
	group, err := loadGroup(ctx, s.store, req.Msg.GroupId, false)
	if err != nil {
		return nil, err
	}

	// The planner matches participants in the order it meets them, so it
	// reads balances in write order rather than sorted by amount.
	balances, err := s.store.ListBalancesInOrder(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetSettlementSuggestions failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	suggestions := calculator.ComputeSettlementsWithStrategy(derefBalances(balances), s.strategy)
	s.metrics.SettlementPlanned(len(suggestions))

	// Outstanding is what the balances record, not what the plan moves.
	amounts := make([]float64, len(balances))
	for i, b := range balances {
		amounts[i] = b.Amount
	}

	message := msgSettlementsReady
	if len(suggestions) == 0 {
		message = msgGroupSettled
	}

	s.logger.Info("Settlement suggestions computed",
		"group_id", group.ID,
		"strategy", s.strategy,
		"payments", len(suggestions),
	)
	return connect.NewResponse(&api.GetSettlementSuggestionsResponse{
		Message:          message,
		Settlements:      toAPISettlements(suggestions),
		TotalOutstanding: calculator.SumAmounts(amounts...),
	}), nil
}

// AdjustBalance records that From owes To Amount more, outside of any expense.
// The next expense change rebuilds the balances and discards the adjustment.
func (s *ExpenseService) AdjustBalance(ctx context.Context, req *connect.Request[api.AdjustBalanceRequest]) (*connect.Response[api.AdjustBalanceResponse], error) {
	msg := req.Msg
	group, err := loadGroup(ctx, s.store, msg.GroupId, false)
	if err != nil {
		return nil, err
	}

	from, ok := group.Participant(msg.From)
	if !ok {
		return nil, invalidArgument("participant %s is not in the group", msg.From)
	}
	to, ok := group.Participant(msg.To)
	if !ok {
		return nil, invalidArgument("participant %s is not in the group", msg.To)
	}

	balance, err := s.ledger.Adjust(ctx, group.ID,
		models.PartyRef{ID: from.ID, Name: from.Name},
		models.PartyRef{ID: to.ID, Name: to.Name},
		msg.Amount,
	)
	if err != nil {
		s.logger.Warn("AdjustBalance failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Balance adjusted",
		"group_id", group.ID,
		"from", from.ID,
		"to", to.ID,
		"amount", msg.Amount,
		"description", msg.Description,
	)

	resp := &api.AdjustBalanceResponse{Message: msgBalanceNowSettled}
	if balance != nil {
		resp.Message = msgBalanceAdjusted
		resp.Balance = toAPIBalance(balance)
	}
	return connect.NewResponse(resp), nil
}

func (s *ExpenseService) normalize(shares []models.Share, amount float64, mode models.SplitMode) ([]models.Share, error) {
	normalized, err := calculator.NormalizeSplit(shares, amount, mode)
	if err != nil {
		s.metrics.SplitRejected(string(mode))
		s.logger.Warn("Split rejected", "split_mode", mode, "amount", amount, "error", err)
		return nil, err
	}
	return normalized, nil
}

// loadExpense fetches an expense together with its group, checking membership.
func (s *ExpenseService) loadExpense(ctx context.Context, expenseID string) (*models.Expense, *models.Group, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, nil, err
	}
	if expenseID == "" {
		return nil, nil, invalidArgument("expense_id required")
	}

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, nil, toConnectError(err)
	}
	group, err := loadGroup(ctx, s.store, expense.GroupID, false)
	if err != nil {
		return nil, nil, err
	}
	return expense, group, nil
}

func resolvePayer(group *models.Group, payerID, userID string) (models.Participant, error) {
	if payerID == "" {
		if p, ok := group.ParticipantByUser(userID); ok {
			return p, nil
		}
		return models.Participant{}, invalidArgument("payer_id required")
	}
	p, ok := group.Participant(payerID)
	if !ok {
		return models.Participant{}, invalidArgument("payer %s is not a participant of the group", payerID)
	}
	return p, nil
}

// everyoneShares is the default split: every participant, in roster order.
func everyoneShares(group *models.Group) []models.Share {
	shares := make([]models.Share, len(group.Participants))
	for i, p := range group.Participants {
		shares[i] = models.Share{ParticipantID: p.ID, Name: p.Name}
	}
	return shares
}

func checkDistinctShares(shares []models.Share) error {
	seen := make(map[string]bool, len(shares))
	for _, sh := range shares {
		if sh.ParticipantID == "" {
			return invalidArgument("share participant_id required")
		}
		if seen[sh.ParticipantID] {
			return invalidArgument("participant %s appears in more than one share", sh.ParticipantID)
		}
		seen[sh.ParticipantID] = true
	}
	return nil
}

func checkOwnerOrPayer(ctx context.Context, group *models.Group, expense *models.Expense) error {
	userID, err := callerID(ctx)
	if err != nil {
		return err
	}
	if group.OwnerID == userID {
		return nil
	}
	if payer, ok := group.Participant(expense.PayerID); ok && payer.UserID == userID {
		return nil
	}
	return toConnectError(errNotOwnerOrPayer)
}
