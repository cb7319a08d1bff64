package calculator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
)

func expense(payer string, shares map[string]float64, order ...string) models.Expense {
	e := models.Expense{PayerID: payer, PayerName: payer, SplitMode: models.SplitCustom}
	for _, id := range order {
		e.Shares = append(e.Shares, models.Share{ParticipantID: id, Name: id, Amount: shares[id]})
		e.Amount += shares[id]
	}
	return e
}

func TestCalculateBalances(t *testing.T) {
	tests := []struct {
		name     string
		expenses []models.Expense
		want     []models.Balance
	}{
		{
			name: "payer is owed by everyone else",
			expenses: []models.Expense{
				expense("alice", map[string]float64{"alice": 30, "bob": 30, "carol": 30}, "alice", "bob", "carol"),
			},
			want: []models.Balance{
				{GroupID: "g1", DebtorID: "bob", DebtorName: "bob", CreditorID: "alice", CreditorName: "alice", Amount: 30},
				{GroupID: "g1", DebtorID: "carol", DebtorName: "carol", CreditorID: "alice", CreditorName: "alice", Amount: 30},
			},
		},
		{
			name: "mutual debts are netted toward the larger direction",
			expenses: []models.Expense{
				expense("bob", map[string]float64{"alice": 50}, "alice"),
				expense("alice", map[string]float64{"bob": 20}, "bob"),
			},
			want: []models.Balance{
				{GroupID: "g1", DebtorID: "alice", DebtorName: "alice", CreditorID: "bob", CreditorName: "bob", Amount: 30},
			},
		},
		{
			name: "direction flips when the reverse debt is larger",
			expenses: []models.Expense{
				expense("bob", map[string]float64{"alice": 20}, "alice"),
				expense("alice", map[string]float64{"bob": 50}, "bob"),
			},
			want: []models.Balance{
				{GroupID: "g1", DebtorID: "bob", DebtorName: "bob", CreditorID: "alice", CreditorName: "alice", Amount: 30},
			},
		},
		{
			name: "equal mutual debts cancel",
			expenses: []models.Expense{
				expense("bob", map[string]float64{"alice": 25.5}, "alice"),
				expense("alice", map[string]float64{"bob": 25.5}, "bob"),
			},
			want: []models.Balance{},
		},
		{
			name: "nets of one cent are dropped",
			expenses: []models.Expense{
				expense("bob", map[string]float64{"alice": 10.01}, "alice"),
				expense("alice", map[string]float64{"bob": 10}, "bob"),
			},
			want: []models.Balance{},
		},
		{
			name: "nets above one cent are kept and rounded",
			expenses: []models.Expense{
				expense("bob", map[string]float64{"alice": 0.1, "carol": 0.2}, "alice", "carol"),
				expense("bob", map[string]float64{"alice": 0.2}, "alice"),
			},
			want: []models.Balance{
				{GroupID: "g1", DebtorID: "alice", DebtorName: "alice", CreditorID: "bob", CreditorName: "bob", Amount: 0.3},
				{GroupID: "g1", DebtorID: "carol", DebtorName: "carol", CreditorID: "bob", CreditorName: "bob", Amount: 0.2},
			},
		},
		{
			name: "expenses without payer are skipped",
			expenses: []models.Expense{
				{Shares: []models.Share{{ParticipantID: "alice", Amount: 10}}},
			},
			want: []models.Balance{},
		},
		{
			name:     "no expenses",
			expenses: nil,
			want:     []models.Balance{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBalances(tt.expenses, "g1")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateBalances_NameSnapshots(t *testing.T) {
	expenses := []models.Expense{
		{
			PayerID:   "alice",
			PayerName: "Alice",
			Shares: []models.Share{
				{ParticipantID: "alice", Name: "Alice", Amount: 5},
				{ParticipantID: "ghost", Amount: 5},
			},
		},
		{
			PayerID:   "alice",
			PayerName: "Alice B.",
			Shares:    []models.Share{{ParticipantID: "bob", Name: "Bob", Amount: 7}},
		},
	}

	got := CalculateBalances(expenses, "g1")
	require.Len(t, got, 2)
	assert.Equal(t, UnknownName, got[0].DebtorName)
	assert.Equal(t, "Alice B.", got[0].CreditorName, "latest snapshot wins")
	assert.Equal(t, "Bob", got[1].DebtorName)
}

func randomExpenses(r *rand.Rand, people []string, n int) []models.Expense {
	expenses := make([]models.Expense, 0, n)
	for i := 0; i < n; i++ {
		payer := people[r.Intn(len(people))]
		amount := float64(r.Intn(20000)+1) / 100
		shares, err := NormalizeSplit(sharesFor(people...), amount, models.SplitEqual)
		if err != nil {
			panic(err)
		}
		expenses = append(expenses, models.Expense{
			ID:        fmt.Sprintf("e%d", i),
			Amount:    amount,
			PayerID:   payer,
			PayerName: payer,
			SplitMode: models.SplitEqual,
			Shares:    shares,
		})
	}
	return expenses
}

func TestCalculateBalances_NoOppositeDirections(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	people := []string{"alice", "bob", "carol", "dave"}

	for round := 0; round < 50; round++ {
		balances := CalculateBalances(randomExpenses(r, people, r.Intn(12)+1), "g1")

		seen := make(map[[2]string]bool)
		for _, b := range balances {
			require.NotEqual(t, b.DebtorID, b.CreditorID)
			require.Greater(t, b.Amount, 0.01)
			key := [2]string{b.DebtorID, b.CreditorID}
			reverse := [2]string{b.CreditorID, b.DebtorID}
			require.False(t, seen[key], "duplicate pair %v", key)
			require.False(t, seen[reverse], "both directions present for %v", key)
			seen[key] = true
		}
	}
}

func TestCalculateBalances_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	expenses := randomExpenses(r, []string{"alice", "bob", "carol"}, 10)

	first := CalculateBalances(expenses, "g1")
	second := CalculateBalances(expenses, "g1")
	assert.Equal(t, first, second)
}

func TestCalculateBalances_PreservesNetPositions(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	people := []string{"alice", "bob", "carol", "dave"}
	expenses := randomExpenses(r, people, 20)

	want := make(map[string]float64)
	for _, e := range expenses {
		for _, s := range e.Shares {
			want[s.ParticipantID] -= s.Amount
			want[e.PayerID] += s.Amount
		}
	}

	got := make(map[string]float64)
	for _, b := range CalculateBalances(expenses, "g1") {
		got[b.DebtorID] -= b.Amount
		got[b.CreditorID] += b.Amount
	}

	for _, p := range people {
		assert.InDelta(t, want[p], got[p], 0.05, "net position of %s", p)
	}
}
