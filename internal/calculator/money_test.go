package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, 1.01, RoundAmount(1.005))
	assert.Equal(t, 33.33, RoundAmount(33.333333))
	assert.Equal(t, -2.35, RoundAmount(-2.345))
}

func TestSumAmounts(t *testing.T) {
	assert.Equal(t, 0.3, SumAmounts(0.1, 0.2))
	assert.Equal(t, 100.0, SumAmounts(33.34, 33.33, 33.33))
	assert.Equal(t, 0.0, SumAmounts())
}
