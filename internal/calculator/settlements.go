package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Strategy selects the order in which debtors and creditors are matched.
type Strategy string

const (
	// StrategyFirstSeen matches participants in the order they appear in the balances.
	StrategyFirstSeen Strategy = "first_seen"

	// StrategyLargestFirst sorts debtors and creditors by magnitude, largest first.
	// It tends to produce fewer payments, but the order of suggestions differs
	// from StrategyFirstSeen for the same input.
	StrategyLargestFirst Strategy = "largest_first"
)

// ParseStrategy validates a strategy name. An empty string means StrategyFirstSeen.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyFirstSeen:
		return StrategyFirstSeen, nil
	case StrategyLargestFirst:
		return StrategyLargestFirst, nil
	}
	return "", fmt.Errorf("unknown settlement strategy %q", s)
}

// position is a participant's net standing. Positive = owed money, negative = owes money.
type position struct {
	id   string
	name string
	net  decimal.Decimal
}

// ComputeSettlements suggests payments that settle every balance of a group,
// matching debtors and creditors in first-seen order.
func ComputeSettlements(balances []models.Balance) []models.SettlementSuggestion {
	return ComputeSettlementsWithStrategy(balances, StrategyFirstSeen)
}

// ComputeSettlementsWithStrategy is ComputeSettlements with an explicit matching order.
//
// Algorithm:
//   - Net position per participant: minus every debt, plus every credit
//   - Debtors (net < -0.01) and creditors (net > 0.01) are swept with two pointers
//   - Each step pays min(debt, credit) and advances whoever reaches zero
//
// The result is greedy, not a guaranteed minimum number of payments.
// It returns an empty slice for a settled group.
func ComputeSettlementsWithStrategy(balances []models.Balance, strategy Strategy) []models.SettlementSuggestion {
	positions := make(map[string]*position)
	var order []*position

	get := func(id, name string) *position {
		p, ok := positions[id]
		if !ok {
			p = &position{id: id, name: name}
			positions[id] = p
			order = append(order, p)
		}
		return p
	}

	for _, b := range balances {
		amount := dec(b.Amount)
		debtor := get(b.DebtorID, b.DebtorName)
		debtor.net = debtor.net.Sub(amount)
		creditor := get(b.CreditorID, b.CreditorName)
		creditor.net = creditor.net.Add(amount)
	}

	var debtors, creditors []*position
	for _, p := range order {
		if p.net.LessThan(tolerance.Neg()) {
			debtors = append(debtors, p)
		} else if p.net.GreaterThan(tolerance) {
			creditors = append(creditors, p)
		}
	}

	if strategy == StrategyLargestFirst {
		sort.SliceStable(debtors, func(i, j int) bool {
			return debtors[i].net.LessThan(debtors[j].net)
		})
		sort.SliceStable(creditors, func(i, j int) bool {
			return creditors[i].net.GreaterThan(creditors[j].net)
		})
	}

	settlements := make([]models.SettlementSuggestion, 0, len(debtors)+len(creditors))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i]
		creditor := creditors[j]

		amount := decimal.Min(debtor.net.Neg(), creditor.net)
		settlements = append(settlements, models.SettlementSuggestion{
			FromID:   debtor.id,
			FromName: debtor.name,
			ToID:     creditor.id,
			ToName:   creditor.name,
			Amount:   amount.Round(2).InexactFloat64(),
		})

		debtor.net = debtor.net.Add(amount)
		creditor.net = creditor.net.Sub(amount)

		if debtor.net.Abs().LessThan(tolerance) {
			i++
		}
		if creditor.net.Abs().LessThan(tolerance) {
			j++
		}
	}

	return settlements
}
