package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// NormalizeSplit computes each share's owed amount so that the shares sum to total.
//
// Equal and percentage splits round every share to two decimals and add the
// rounding residual to the first share. Custom splits are validated against the
// total (one cent tolerance) and otherwise kept as supplied.
//
// Unrecognized modes return the shares unchanged and unvalidated.
// The input slice is not modified.
func NormalizeSplit(shares []models.Share, total float64, mode models.SplitMode) ([]models.Share, error) {
	out := make([]models.Share, len(shares))
	copy(out, shares)

	switch mode {
	case models.SplitEqual, models.SplitPercentage, models.SplitCustom:
	default:
		return out, nil
	}

	if len(out) == 0 {
		return nil, &ValidationError{Err: ErrNoParticipants}
	}
	totalDec := dec(total).Round(2)
	if !totalDec.IsPositive() {
		return nil, invalid(ErrInvalidAmount, "got %s", totalDec)
	}

	switch mode {
	case models.SplitEqual:
		per := totalDec.Div(decimal.NewFromInt(int64(len(out)))).Round(2)
		amounts := make([]decimal.Decimal, len(out))
		for i := range amounts {
			amounts[i] = per
		}
		setAmounts(out, absorbResidual(amounts, totalDec))

	case models.SplitPercentage:
		sum := decimal.Zero
		for _, s := range out {
			if s.Percentage < 0 {
				return nil, invalid(ErrNegativeShare, "participant %s has %v%%", s.ParticipantID, s.Percentage)
			}
			sum = sum.Add(dec(s.Percentage))
		}
		if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
			return nil, invalid(ErrInvalidPercentages, "got %s", sum)
		}
		amounts := make([]decimal.Decimal, len(out))
		for i, s := range out {
			amounts[i] = totalDec.Mul(dec(s.Percentage)).Div(hundred).Round(2)
		}
		setAmounts(out, absorbResidual(amounts, totalDec))

	case models.SplitCustom:
		// The tolerance applies to the amounts as stored, so round first.
		amounts := make([]decimal.Decimal, len(out))
		for i, s := range out {
			if s.Amount < 0 {
				return nil, invalid(ErrNegativeShare, "participant %s has %v", s.ParticipantID, s.Amount)
			}
			amounts[i] = dec(s.Amount).Round(2)
		}
		sum := decimal.Sum(decimal.Zero, amounts...)
		if sum.Sub(totalDec).Abs().GreaterThan(tolerance) {
			return nil, invalid(ErrCustomAmountMismatch, "total %s, current sum %s", totalDec, sum)
		}
		setAmounts(out, amounts)
	}

	return out, nil
}

// absorbResidual adds total minus the sum of amounts to the first amount.
func absorbResidual(amounts []decimal.Decimal, total decimal.Decimal) []decimal.Decimal {
	sum := decimal.Sum(decimal.Zero, amounts...)
	if diff := total.Sub(sum); !diff.IsZero() {
		amounts[0] = amounts[0].Add(diff).Round(2)
	}
	return amounts
}

func setAmounts(shares []models.Share, amounts []decimal.Decimal) {
	for i := range shares {
		shares[i].Amount = amounts[i].InexactFloat64()
	}
}
