package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// UnknownName is the snapshot used when no name was recorded for a participant.
const UnknownName = "Unknown"

// pair is a directed debt: debtor owes creditor.
type pair struct {
	debtor   string
	creditor string
}

func (p pair) reverse() pair {
	return pair{debtor: p.creditor, creditor: p.debtor}
}

// CalculateBalances computes the net pairwise balances of a group from its expenses.
// It returns the complete balance set; callers replace the stored set with it.
//
// Algorithm:
//   - Every share of every expense accrues to (participant -> payer)
//   - Each pair of participants is netted to the larger direction
//   - Nets of one cent or less are treated as settled and dropped
//
// Balances are returned in the order their participant pair was first seen.
func CalculateBalances(expenses []models.Expense, groupID string) []models.Balance {
	owed := make(map[pair]decimal.Decimal)
	names := make(map[string]string)
	var order []pair

	remember := func(id, name string) {
		if name != "" {
			names[id] = name
		}
	}

	for _, e := range expenses {
		// Skip expenses without payer (can't attribute debts)
		if e.PayerID == "" {
			continue
		}
		remember(e.PayerID, e.PayerName)

		for _, s := range e.Shares {
			if s.ParticipantID == "" {
				continue
			}
			remember(s.ParticipantID, s.Name)
			if s.ParticipantID == e.PayerID {
				continue
			}

			k := pair{debtor: s.ParticipantID, creditor: e.PayerID}
			if _, seen := owed[k]; !seen {
				if _, seenReverse := owed[k.reverse()]; !seenReverse {
					order = append(order, k)
				}
			}
			owed[k] = owed[k].Add(dec(s.Amount))
		}
	}

	nameOf := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return UnknownName
	}

	balances := make([]models.Balance, 0, len(order))
	for _, k := range order {
		net := owed[k].Sub(owed[k.reverse()])
		if net.IsNegative() {
			k = k.reverse()
			net = net.Neg()
		}
		if net.LessThanOrEqual(tolerance) {
			continue
		}
		balances = append(balances, models.Balance{
			GroupID:      groupID,
			DebtorID:     k.debtor,
			DebtorName:   nameOf(k.debtor),
			CreditorID:   k.creditor,
			CreditorName: nameOf(k.creditor),
			Amount:       net.Round(2).InexactFloat64(),
		})
	}

	return balances
}
