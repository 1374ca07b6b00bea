package backend

import (
	"errors"
	"fmt"

	"energyadmin/entity"
)

const transportErrorMessage = "Network error, please retry"

// ValidationError is returned for bad input, before any side effect
type ValidationError = entity.ValidationError

// NotFoundError is returned when a referenced user or plan does not exist.
// It is reported before any mutation and without simulated delay.
type NotFoundError struct {
	Entity string
	Id     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// TransportError is the injected network failure. It is raised after the
// operation's effect was committed, so the caller cannot tell whether a
// mutation happened; retrying may apply it twice.
type TransportError struct {
	Operation string
}

func (e *TransportError) Error() string {
	return transportErrorMessage
}

func (e *TransportError) Retryable() bool {
	return true
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func userNotFound(id string) error {
	return &NotFoundError{Entity: "User", Id: id}
}

func planNotFound(id string) error {
	return &NotFoundError{Entity: "Plan", Id: id}
}
