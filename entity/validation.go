package entity

import (
	"fmt"
	"unicode/utf8"
)

const (
	MinPlanNameLength   = 2
	MinRenewablePercent = 0
	MaxRenewablePercent = 100
)

// ValidationError reports an input field that breaks a creation rule
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validatePlanFields(name string, price, renewable int) error {
	if utf8.RuneCountInString(name) < MinPlanNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must contain at least %d characters", MinPlanNameLength)}
	}
	if price <= 0 {
		return &ValidationError{Field: "price_cents_per_kwh", Message: "must be greater than 0"}
	}
	if renewable < MinRenewablePercent || renewable > MaxRenewablePercent {
		return &ValidationError{Field: "renewable_percent", Message: fmt.Sprintf("must be between %d and %d", MinRenewablePercent, MaxRenewablePercent)}
	}
	return nil
}
