package calculator

import (
	"github.com/mmynk/splitledger/internal/models"
)

// AdjustPair decides how a manual adjustment of "debtor owes creditor delta more"
// changes the stored balance between two participants.
//
// forward is the existing debtor->creditor row and reverse the existing
// creditor->debtor row; either may be nil. Debts in the opposite direction are
// consumed first, and the direction flips when delta exceeds them. A leftover
// of one cent or less removes the pair entirely.
func AdjustPair(groupID string, forward, reverse *models.Balance, delta float64, debtor, creditor models.PartyRef) (models.PairAdjustment, error) {
	if debtor.ID == "" || creditor.ID == "" || debtor.ID == creditor.ID {
		return models.PairAdjustment{}, invalid(ErrInvalidAdjustment, "from %q to %q", debtor.ID, creditor.ID)
	}
	d := dec(delta).Round(2)
	if !d.IsPositive() {
		return models.PairAdjustment{}, invalid(ErrInvalidAmount, "got %s", d)
	}

	if forward != nil {
		updated := *forward
		updated.Amount = dec(forward.Amount).Add(d).Round(2).InexactFloat64()
		return models.PairAdjustment{Upsert: &updated}, nil
	}

	if reverse != nil {
		existing := dec(reverse.Amount)
		if existing.Sub(d).GreaterThan(tolerance) {
			updated := *reverse
			updated.Amount = existing.Sub(d).Round(2).InexactFloat64()
			return models.PairAdjustment{Upsert: &updated}, nil
		}

		removed := *reverse
		adj := models.PairAdjustment{Delete: &removed}
		if remaining := d.Sub(existing); remaining.GreaterThan(tolerance) {
			adj.Upsert = newBalance(groupID, debtor, creditor, remaining.Round(2).InexactFloat64())
		}
		return adj, nil
	}

	return models.PairAdjustment{Upsert: newBalance(groupID, debtor, creditor, d.InexactFloat64())}, nil
}

func newBalance(groupID string, debtor, creditor models.PartyRef, amount float64) *models.Balance {
	if debtor.Name == "" {
		debtor.Name = UnknownName
	}
	if creditor.Name == "" {
		creditor.Name = UnknownName
	}
	return &models.Balance{
		GroupID:      groupID,
		DebtorID:     debtor.ID,
		DebtorName:   debtor.Name,
		CreditorID:   creditor.ID,
		CreditorName: creditor.Name,
		Amount:       amount,
	}
}
