package calculator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
)

func owes(debtor, creditor string, amount float64) models.Balance {
	return models.Balance{
		GroupID:      "g1",
		DebtorID:     debtor,
		DebtorName:   debtor,
		CreditorID:   creditor,
		CreditorName: creditor,
		Amount:       amount,
	}
}

// netPositions returns each participant's net: positive = owed money.
func netPositions(balances []models.Balance) map[string]float64 {
	nets := make(map[string]float64)
	for _, b := range balances {
		nets[b.DebtorID] -= b.Amount
		nets[b.CreditorID] += b.Amount
	}
	return nets
}

// assertSettles checks that paying every suggestion drains all net positions.
// Participants within a cent of zero are left alone by the planner, so a few
// cents of slack are allowed.
func assertSettles(t *testing.T, balances []models.Balance, settlements []models.SettlementSuggestion) {
	t.Helper()
	nets := netPositions(balances)
	outstanding := 0.0
	for _, n := range nets {
		if n > 0 {
			outstanding += n
		}
	}

	paid := 0.0
	for _, s := range settlements {
		assert.Greater(t, s.Amount, 0.0)
		nets[s.FromID] += s.Amount
		nets[s.ToID] -= s.Amount
		paid += s.Amount
	}
	for id, n := range nets {
		assert.InDelta(t, 0, n, 0.041, "participant %s not settled", id)
	}
	assert.InDelta(t, outstanding, paid, 0.041)
}

func TestComputeSettlements(t *testing.T) {
	tests := []struct {
		name     string
		balances []models.Balance
		want     []models.SettlementSuggestion
	}{
		{
			name:     "settled group",
			balances: nil,
			want:     []models.SettlementSuggestion{},
		},
		{
			name:     "single debt",
			balances: []models.Balance{owes("alice", "bob", 12.5)},
			want: []models.SettlementSuggestion{
				{FromID: "alice", FromName: "alice", ToID: "bob", ToName: "bob", Amount: 12.5},
			},
		},
		{
			name: "chain collapses to one payment",
			balances: []models.Balance{
				owes("alice", "bob", 30),
				owes("bob", "carol", 30),
			},
			want: []models.SettlementSuggestion{
				{FromID: "alice", FromName: "alice", ToID: "carol", ToName: "carol", Amount: 30},
			},
		},
		{
			name: "two debtors and two creditors",
			balances: []models.Balance{
				owes("alice", "carol", 40),
				owes("bob", "carol", 10),
				owes("bob", "dave", 10),
			},
			want: []models.SettlementSuggestion{
				{FromID: "alice", FromName: "alice", ToID: "carol", ToName: "carol", Amount: 40},
				{FromID: "bob", FromName: "bob", ToID: "carol", ToName: "carol", Amount: 10},
				{FromID: "bob", FromName: "bob", ToID: "dave", ToName: "dave", Amount: 10},
			},
		},
		{
			name: "participants within a cent of zero are ignored",
			balances: []models.Balance{
				owes("alice", "bob", 20),
				owes("bob", "carol", 19.995),
			},
			want: []models.SettlementSuggestion{
				{FromID: "alice", FromName: "alice", ToID: "carol", ToName: "carol", Amount: 20},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSettlements(tt.balances)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeSettlements_TwoDebtorsTwoCreditors(t *testing.T) {
	balances := []models.Balance{
		owes("alice", "carol", 40),
		owes("bob", "carol", 10),
		owes("bob", "dave", 10),
	}

	got := ComputeSettlements(balances)
	require.Len(t, got, 3)

	total := 0.0
	for _, s := range got {
		total += s.Amount
	}
	assert.InDelta(t, 60, total, 0.001)
	assertSettles(t, balances, got)
}

func TestComputeSettlements_LargestFirst(t *testing.T) {
	balances := []models.Balance{
		owes("alice", "carol", 10),
		owes("bob", "carol", 30),
		owes("bob", "dave", 10),
	}

	firstSeen := ComputeSettlementsWithStrategy(balances, StrategyFirstSeen)
	assert.Len(t, firstSeen, 3)
	assertSettles(t, balances, firstSeen)

	largest := ComputeSettlementsWithStrategy(balances, StrategyLargestFirst)
	assert.Equal(t, []models.SettlementSuggestion{
		{FromID: "bob", FromName: "bob", ToID: "carol", ToName: "carol", Amount: 40},
		{FromID: "alice", FromName: "alice", ToID: "dave", ToName: "dave", Amount: 10},
	}, largest)
	assertSettles(t, balances, largest)
}

func TestComputeSettlements_RandomGroupsSettle(t *testing.T) {
	r := rand.New(rand.NewSource(2024))
	people := []string{"alice", "bob", "carol", "dave"}

	for round := 0; round < 100; round++ {
		balances := CalculateBalances(randomExpenses(r, people, r.Intn(15)+1), "g1")
		for _, strategy := range []Strategy{StrategyFirstSeen, StrategyLargestFirst} {
			settlements := ComputeSettlementsWithStrategy(balances, strategy)
			assertSettles(t, balances, settlements)
			assert.LessOrEqual(t, len(settlements), len(people)-1)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyFirstSeen, s)

	s, err = ParseStrategy("largest_first")
	require.NoError(t, err)
	assert.Equal(t, StrategyLargestFirst, s)

	_, err = ParseStrategy("optimal")
	assert.Error(t, err)
}
