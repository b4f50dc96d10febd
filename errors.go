package main

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidHorizon is returned when the end year is not after the start year
	ErrInvalidHorizon = errors.New("invalid horizon")

	// ErrInvalidMortgagePayment is returned when the monthly payment does not cover
	// the interest due, so the loan would never shrink
	ErrInvalidMortgagePayment = errors.New("invalid mortgage payment")
)

// ValidationError describes a single invalid input field
type ValidationError struct {
	Field   string
	Message string
	Err     error // Optional sentinel for errors.Is
}

func (e ValidationError) Error() string {
	return e.Message
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors collects every invalid field found in one pass
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors so errors.Is finds sentinels
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// OrNil returns nil for an empty collection so callers can return it directly
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
