package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

func float(v float64) *float64 { return &v }
func str(v string) *string     { return &v }

func TestExpenseService_CreateExpense(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Roommates", bob, "Carol")

	resp, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		GroupId:     group.Id,
		Amount:      100,
		Description: "Groceries",
		Date:        1700000000,
	}))
	require.NoError(t, err)

	expense := resp.Msg.Expense
	assert.NotEmpty(t, expense.Id)
	assert.Equal(t, alice.ID, expense.PayerId, "payer defaults to the caller")
	assert.Equal(t, "Alice", expense.PayerName)
	assert.Equal(t, string(models.SplitEqual), expense.SplitMode)
	assert.Equal(t, int64(1700000000), expense.Date)
	require.Len(t, expense.Shares, 3)
	assert.Equal(t, 33.34, expense.Shares[0].Amount, "first share absorbs the residual")
	assert.Equal(t, 33.33, expense.Shares[1].Amount)
	assert.Equal(t, 33.33, expense.Shares[2].Amount)

	got, err := env.groups.GetGroup(ctx, as(bob, &api.GetGroupRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Msg.Group.TotalSpent)
	assert.Equal(t, map[string]float64{
		"Bob->Alice":   33.33,
		"Carol->Alice": 33.33,
	}, debts(got.Msg.Balances))
}

func TestExpenseService_SplitModes(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Trip", bob)

	pct, err := env.expenses.CreateExpense(ctx, as(bob, &api.CreateExpenseRequest{
		GroupId:     group.Id,
		Amount:      200,
		Description: "Hotel",
		SplitMode:   "percentage",
		Shares: []*api.Share{
			{ParticipantId: alice.ID, Percentage: 75},
			{ParticipantId: bob.ID, Percentage: 25},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, bob.ID, pct.Msg.Expense.PayerId)
	assert.Equal(t, 150.0, pct.Msg.Expense.Shares[0].Amount)
	assert.Equal(t, 50.0, pct.Msg.Expense.Shares[1].Amount)

	custom, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		GroupId:     group.Id,
		Amount:      60,
		Description: "Fuel",
		SplitMode:   "custom",
		Shares: []*api.Share{
			{ParticipantId: alice.ID, Amount: 20},
			{ParticipantId: bob.ID, Amount: 40},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Alice", custom.Msg.Expense.Shares[0].Name)
	assert.Equal(t, 40.0, custom.Msg.Expense.Shares[1].Amount)

	// Alice owes 150 for the hotel, Bob owes 40 for fuel.
	balances, err := env.expenses.GetBalances(ctx, as(alice, &api.GetBalancesRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Alice->Bob": 110}, debts(balances.Msg.Balances))
	assert.Equal(t, 0.0, balances.Msg.TotalOwed)
	assert.Equal(t, 110.0, balances.Msg.TotalOwes)
}

func TestExpenseService_CreateExpenseValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	mallory := env.register(t, "Mallory")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Trip", bob)
	both := func(a, b float64) []*api.Share {
		return []*api.Share{
			{ParticipantId: alice.ID, Amount: a, Percentage: a},
			{ParticipantId: bob.ID, Amount: b, Percentage: b},
		}
	}

	tests := []struct {
		name string
		user testUser
		req  *api.CreateExpenseRequest
		want connect.Code
	}{
		{
			name: "percentages off",
			user: alice,
			req:  &api.CreateExpenseRequest{GroupId: group.Id, Amount: 100, Description: "x", SplitMode: "percentage", Shares: both(60, 30)},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "custom mismatch",
			user: alice,
			req:  &api.CreateExpenseRequest{GroupId: group.Id, Amount: 100, Description: "x", SplitMode: "custom", Shares: both(60, 30)},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "zero amount",
			user: alice,
			req:  &api.CreateExpenseRequest{GroupId: group.Id, Amount: 0, Description: "x"},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "unknown split mode",
			user: alice,
			req:  &api.CreateExpenseRequest{GroupId: group.Id, Amount: 10, Description: "x", SplitMode: "shares"},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "missing description",
			user: alice,
			req:  &api.CreateExpenseRequest{GroupId: group.Id, Amount: 10, Description: " "},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "payer outside group",
			user: alice,
			req:  &api.CreateExpenseRequest{GroupId: group.Id, Amount: 10, Description: "x", PayerId: mallory.ID},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "duplicate share",
			user: alice,
			req: &api.CreateExpenseRequest{GroupId: group.Id, Amount: 10, Description: "x", Shares: []*api.Share{
				{ParticipantId: bob.ID}, {ParticipantId: bob.ID},
			}},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "not a member",
			user: mallory,
			req:  &api.CreateExpenseRequest{GroupId: group.Id, Amount: 10, Description: "x"},
			want: connect.CodePermissionDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.CreateExpense(ctx, as(tt.user, tt.req))
			requireCode(t, tt.want, err)
		})
	}

	expected := `
# HELP splitledger_split_validation_failures_total Number of expense splits rejected by validation, by split mode.
# TYPE splitledger_split_validation_failures_total counter
splitledger_split_validation_failures_total{mode="custom"} 1
splitledger_split_validation_failures_total{mode="equal"} 1
splitledger_split_validation_failures_total{mode="percentage"} 1
`
	require.NoError(t, testutil.GatherAndCompare(env.registry, strings.NewReader(expected), "splitledger_split_validation_failures_total"))

	got, err := env.groups.GetGroup(ctx, as(alice, &api.GetGroupRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Empty(t, got.Msg.Expenses)
	assert.Zero(t, got.Msg.Group.TotalSpent)
}

func TestExpenseService_UnknownShareParticipant(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Solo")

	resp, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		GroupId:     group.Id,
		Amount:      30,
		Description: "Taxi",
		SplitMode:   "custom",
		Shares: []*api.Share{
			{ParticipantId: alice.ID, Amount: 10},
			{ParticipantId: "ghost", Amount: 20},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, calculator.UnknownName, resp.Msg.Expense.Shares[1].Name)

	balances, err := env.expenses.GetBalances(ctx, as(alice, &api.GetBalancesRequest{GroupId: group.Id}))
	require.NoError(t, err)
	require.Len(t, balances.Msg.Balances, 1)
	assert.Equal(t, "ghost", balances.Msg.Balances[0].DebtorId)
	assert.Equal(t, 20.0, balances.Msg.TotalOwed)
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Roommates", bob, "Carol")

	groceries, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		GroupId:     group.Id,
		Amount:      100,
		Description: "Groceries",
	}))
	require.NoError(t, err)

	fuel, err := env.expenses.CreateExpense(ctx, as(bob, &api.CreateExpenseRequest{
		GroupId:     group.Id,
		Amount:      60,
		Description: "Fuel",
		SplitMode:   "custom",
		Shares: []*api.Share{
			{ParticipantId: alice.ID, Amount: 40},
			{ParticipantId: bob.ID, Amount: 20},
		},
	}))
	require.NoError(t, err)

	got, err := env.groups.GetGroup(ctx, as(alice, &api.GetGroupRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, 160.0, got.Msg.Group.TotalSpent)
	assert.Equal(t, map[string]float64{
		"Carol->Alice": 33.33,
		"Alice->Bob":   6.67,
	}, debts(got.Msg.Balances))

	// Bob neither owns the group nor paid for the groceries.
	_, err = env.expenses.UpdateExpense(ctx, as(bob, &api.UpdateExpenseRequest{
		ExpenseId: groceries.Msg.Expense.Id,
		Amount:    float(10),
	}))
	requireCode(t, connect.CodePermissionDenied, err)

	updated, err := env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
		ExpenseId: groceries.Msg.Expense.Id,
		Amount:    float(90),
		Notes:     str("weekly shop"),
	}))
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.Msg.Expense.Amount)
	assert.Equal(t, "Groceries", updated.Msg.Expense.Description)
	assert.Equal(t, "weekly shop", updated.Msg.Expense.Notes)
	for _, s := range updated.Msg.Expense.Shares {
		assert.Equal(t, 30.0, s.Amount)
	}

	got, err = env.groups.GetGroup(ctx, as(alice, &api.GetGroupRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.Msg.Group.TotalSpent)
	assert.Equal(t, map[string]float64{
		"Carol->Alice": 30,
		"Alice->Bob":   10,
	}, debts(got.Msg.Balances))

	_, err = env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
		ExpenseId: groceries.Msg.Expense.Id,
		SplitMode: str("percentage"),
	}))
	requireCode(t, connect.CodeInvalidArgument, err)

	// The payer may delete their own expense.
	_, err = env.expenses.DeleteExpense(ctx, as(bob, &api.DeleteExpenseRequest{ExpenseId: fuel.Msg.Expense.Id}))
	require.NoError(t, err)

	_, err = env.expenses.GetExpense(ctx, as(alice, &api.GetExpenseRequest{ExpenseId: fuel.Msg.Expense.Id}))
	requireCode(t, connect.CodeNotFound, err)

	got, err = env.groups.GetGroup(ctx, as(alice, &api.GetGroupRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.Msg.Group.TotalSpent)
	assert.Equal(t, map[string]float64{
		"Bob->Alice":   30,
		"Carol->Alice": 30,
	}, debts(got.Msg.Balances))
}

func TestExpenseService_ChangePayer(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Trip", bob)
	created, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		GroupId:     group.Id,
		Amount:      50,
		Description: "Museum",
	}))
	require.NoError(t, err)

	updated, err := env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
		ExpenseId: created.Msg.Expense.Id,
		PayerId:   str(bob.ID),
	}))
	require.NoError(t, err)
	assert.Equal(t, "Bob", updated.Msg.Expense.PayerName)

	balances, err := env.expenses.GetBalances(ctx, as(bob, &api.GetBalancesRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Alice->Bob": 25}, debts(balances.Msg.Balances))
	assert.Equal(t, 25.0, balances.Msg.TotalOwed)

	_, err = env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
		ExpenseId: created.Msg.Expense.Id,
		PayerId:   str("nobody"),
	}))
	requireCode(t, connect.CodeInvalidArgument, err)
}

func TestExpenseService_ListExpenses(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Roommates", bob)
	create := func(user testUser, amount float64, description string, date int64) {
		_, err := env.expenses.CreateExpense(ctx, as(user, &api.CreateExpenseRequest{
			GroupId:     group.Id,
			Amount:      amount,
			Description: description,
			Date:        date,
		}))
		require.NoError(t, err)
	}
	create(alice, 20, "Pizza night", 1000)
	create(bob, 80, "Electricity", 2000)
	create(alice, 45, "Pizza again", 3000)

	tests := []struct {
		name string
		req  *api.ListExpensesRequest
		want []string
	}{
		{"all newest first", &api.ListExpensesRequest{}, []string{"Pizza again", "Electricity", "Pizza night"}},
		{"search", &api.ListExpensesRequest{Search: "pizza"}, []string{"Pizza again", "Pizza night"}},
		{"min amount", &api.ListExpensesRequest{MinAmount: 40}, []string{"Pizza again", "Electricity"}},
		{"date range", &api.ListExpensesRequest{StartDate: 1500, EndDate: 2500}, []string{"Electricity"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.GroupId = group.Id
			resp, err := env.expenses.ListExpenses(ctx, as(alice, tt.req))
			require.NoError(t, err)
			got := make([]string, len(resp.Msg.Expenses))
			for i, e := range resp.Msg.Expenses {
				got[i] = e.Description
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpenseService_SettlementSuggestions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Roommates", bob, "Carol")

	resp, err := env.expenses.GetSettlementSuggestions(ctx, as(bob, &api.GetSettlementSuggestionsRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, msgGroupSettled, resp.Msg.Message)
	assert.Empty(t, resp.Msg.Settlements)
	assert.Zero(t, resp.Msg.TotalOutstanding)

	_, err = env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		GroupId: group.Id, Amount: 100, Description: "Groceries",
	}))
	require.NoError(t, err)
	_, err = env.expenses.CreateExpense(ctx, as(bob, &api.CreateExpenseRequest{
		GroupId: group.Id, Amount: 60, Description: "Fuel", SplitMode: "custom",
		Shares: []*api.Share{{ParticipantId: alice.ID, Amount: 40}, {ParticipantId: bob.ID, Amount: 20}},
	}))
	require.NoError(t, err)

	resp, err = env.expenses.GetSettlementSuggestions(ctx, as(bob, &api.GetSettlementSuggestionsRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, msgSettlementsReady, resp.Msg.Message)

	got := payments(resp.Msg.Settlements)
	// Nets: Alice +26.66, Bob +6.67, Carol -33.33.
	assert.ElementsMatch(t, []payment{
		{"Carol", "Alice", 26.66},
		{"Carol", "Bob", 6.67},
	}, got)
	// Balances are Carol->Alice 33.33 and Alice->Bob 6.67.
	assert.Equal(t, 40.0, resp.Msg.TotalOutstanding)

	count, err := testutil.GatherAndCount(env.registry, "splitledger_settlement_suggestions")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type payment struct {
	From, To string
	Amount   float64
}

func payments(settlements []*api.SettlementSuggestion) []payment {
	var out []payment
	for _, s := range settlements {
		out = append(out, payment{s.FromName, s.ToName, s.Amount})
	}
	return out
}

func TestExpenseService_SettlementsFollowRebuildOrder(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Trip", bob, "Carol", "Dave")
	carolID := participantID(t, group, "Carol")
	daveID := participantID(t, group, "Dave")

	// Expenses are listed newest first, so the dates fix the rebuild order:
	// Bob->Alice 7, Dave->Alice 17, Carol->Bob 24, Bob->Dave 42.
	expenses := []struct {
		date    int64
		payer   string
		debtor  string
		amount  float64
		caption string
	}{
		{4000, alice.ID, bob.ID, 7, "Coffee"},
		{3000, alice.ID, daveID, 17, "Parking"},
		{2000, bob.ID, carolID, 24, "Tickets"},
		{1000, daveID, bob.ID, 42, "Hotel"},
	}
	for _, e := range expenses {
		_, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
			GroupId: group.Id, Amount: e.amount, Description: e.caption, Date: e.date,
			PayerId: e.payer, SplitMode: "custom",
			Shares: []*api.Share{{ParticipantId: e.debtor, Amount: e.amount}},
		}))
		require.NoError(t, err)
	}

	balances, err := env.expenses.GetBalances(ctx, as(alice, &api.GetBalancesRequest{GroupId: group.Id}))
	require.NoError(t, err)
	require.Len(t, balances.Msg.Balances, 4)
	assert.Equal(t, 42.0, balances.Msg.Balances[0].Amount)

	resp, err := env.expenses.GetSettlementSuggestions(ctx, as(alice, &api.GetSettlementSuggestionsRequest{GroupId: group.Id}))
	require.NoError(t, err)
	// Sorted by amount the same balances would plan Bob->Dave 25 and Carol->Alice 24.
	assert.Equal(t, []payment{
		{"Bob", "Alice", 24},
		{"Bob", "Dave", 1},
		{"Carol", "Dave", 24},
	}, payments(resp.Msg.Settlements))
	assert.Equal(t, 90.0, resp.Msg.TotalOutstanding)
}

func TestExpenseService_OutstandingCountsEveryBalance(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Roommates", bob, "Carol")
	carolID := participantID(t, group, "Carol")

	for _, req := range []*api.AdjustBalanceRequest{
		{GroupId: group.Id, From: alice.ID, To: bob.ID, Amount: 30},
		{GroupId: group.Id, From: bob.ID, To: carolID, Amount: 30},
	} {
		_, err := env.expenses.AdjustBalance(ctx, as(alice, req))
		require.NoError(t, err)
	}

	resp, err := env.expenses.GetSettlementSuggestions(ctx, as(bob, &api.GetSettlementSuggestionsRequest{GroupId: group.Id}))
	require.NoError(t, err)
	// Bob passes the money through, so one payment clears both balances.
	assert.Equal(t, []payment{{"Alice", "Carol", 30}}, payments(resp.Msg.Settlements))
	assert.Equal(t, 60.0, resp.Msg.TotalOutstanding)
}

func TestExpenseService_AdjustBalance(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Roommates", bob, "Carol")
	carolID := participantID(t, group, "Carol")

	resp, err := env.expenses.AdjustBalance(ctx, as(bob, &api.AdjustBalanceRequest{
		GroupId: group.Id, From: bob.ID, To: alice.ID, Amount: 20, Description: "cinema tickets",
	}))
	require.NoError(t, err)
	assert.Equal(t, msgBalanceAdjusted, resp.Msg.Message)
	require.NotNil(t, resp.Msg.Balance)
	assert.Equal(t, "Bob", resp.Msg.Balance.DebtorName)
	assert.Equal(t, 20.0, resp.Msg.Balance.Amount)

	// Netting against the opposite direction flips the pair.
	resp, err = env.expenses.AdjustBalance(ctx, as(alice, &api.AdjustBalanceRequest{
		GroupId: group.Id, From: alice.ID, To: bob.ID, Amount: 25,
	}))
	require.NoError(t, err)
	require.NotNil(t, resp.Msg.Balance)
	assert.Equal(t, "Alice", resp.Msg.Balance.DebtorName)
	assert.Equal(t, 5.0, resp.Msg.Balance.Amount)

	resp, err = env.expenses.AdjustBalance(ctx, as(bob, &api.AdjustBalanceRequest{
		GroupId: group.Id, From: bob.ID, To: alice.ID, Amount: 5,
	}))
	require.NoError(t, err)
	assert.Equal(t, msgBalanceNowSettled, resp.Msg.Message)
	assert.Nil(t, resp.Msg.Balance)

	balances, err := env.expenses.GetBalances(ctx, as(alice, &api.GetBalancesRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Empty(t, balances.Msg.Balances)

	tests := []struct {
		name string
		req  *api.AdjustBalanceRequest
	}{
		{"same participant", &api.AdjustBalanceRequest{GroupId: group.Id, From: bob.ID, To: bob.ID, Amount: 5}},
		{"zero amount", &api.AdjustBalanceRequest{GroupId: group.Id, From: bob.ID, To: alice.ID}},
		{"negative amount", &api.AdjustBalanceRequest{GroupId: group.Id, From: bob.ID, To: alice.ID, Amount: -3}},
		{"unknown participant", &api.AdjustBalanceRequest{GroupId: group.Id, From: "nobody", To: alice.ID, Amount: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.AdjustBalance(ctx, as(alice, tt.req))
			requireCode(t, connect.CodeInvalidArgument, err)
		})
	}

	// A rebuild from expenses discards manual adjustments.
	_, err = env.expenses.AdjustBalance(ctx, as(alice, &api.AdjustBalanceRequest{
		GroupId: group.Id, From: carolID, To: bob.ID, Amount: 12,
	}))
	require.NoError(t, err)
	_, err = env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		GroupId: group.Id, Amount: 30, Description: "Snacks",
	}))
	require.NoError(t, err)

	balances, err = env.expenses.GetBalances(ctx, as(alice, &api.GetBalancesRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"Bob->Alice":   10,
		"Carol->Alice": 10,
	}, debts(balances.Msg.Balances))

	expected := `
# HELP splitledger_balance_adjustments_total Number of manual balance adjustments applied.
# TYPE splitledger_balance_adjustments_total counter
splitledger_balance_adjustments_total 4
`
	require.NoError(t, testutil.GatherAndCompare(env.registry, strings.NewReader(expected), "splitledger_balance_adjustments_total"))
}

func TestExpenseService_ConcurrentCreates(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	ctx := context.Background()

	group := env.newGroup(t, alice, "Roommates", bob)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
				GroupId: group.Id, Amount: 10, Description: "Coffee",
			}))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := env.groups.GetGroup(ctx, as(alice, &api.GetGroupRequest{GroupId: group.Id}))
	require.NoError(t, err)
	assert.Len(t, got.Msg.Expenses, n)
	assert.Equal(t, 100.0, got.Msg.Group.TotalSpent)
	assert.Equal(t, map[string]float64{"Bob->Alice": 50}, debts(got.Msg.Balances))
}
