package calculator

import "github.com/shopspring/decimal"

var (
	// tolerance is one cent. Differences at or below it are rounding noise.
	tolerance = decimal.New(1, -2)
	hundred   = decimal.NewFromInt(100)
)

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// RoundAmount rounds to two decimals, half away from zero.
func RoundAmount(amount float64) float64 {
	return dec(amount).Round(2).InexactFloat64()
}

// SumAmounts adds amounts exactly and rounds the result to two decimals.
func SumAmounts(amounts ...float64) float64 {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(dec(a))
	}
	return sum.Round(2).InexactFloat64()
}
