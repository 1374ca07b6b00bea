package utility

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// IntAsPrice converts cents to a string like 10234 to 102.34
func IntAsPrice(i int) string {
	return decimal.New(int64(i), -2).StringFixed(2)
}

// EurosToCents parses an amount like "10.005" and rounds it to whole cents, half away from zero
func EurosToCents(euros string) (int, error) {
	amount, err := decimal.NewFromString(euros)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", euros, err)
	}
	return int(amount.Mul(oneHundred).Round(0).IntPart()), nil
}

func NewUUID() string {
	return uuid.New().String()
}
