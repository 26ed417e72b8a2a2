package validation

import (
	"fmt"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

// RejectionError reports why a record was rejected. Rejections are data, not
// run failures: the caller records them and moves on to the next row.
type RejectionError struct {
	// Reason is the fixed rejection code.
	Reason types.Reason

	// Field is the header of the offending column, when one applies.
	Field string

	// Value is the offending raw value, when one applies.
	Value string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Field == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: field '%s' (value: '%s')", e.Reason, e.Field, e.Value)
}

// Is matches any RejectionError with the same Reason, so callers can use
// errors.Is(err, ErrInvalidCPF) regardless of field details.
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	return ok && t.Reason == e.Reason
}

// Sentinel rejections, one per reason.
var (
	ErrInvalidIdentifierFormat = &RejectionError{Reason: types.ReasonInvalidIdentifierFormat}
	ErrInvalidCPF              = &RejectionError{Reason: types.ReasonInvalidIndividualID}
	ErrInvalidCNPJ             = &RejectionError{Reason: types.ReasonInvalidEntityID}
	ErrInvalidInstallments     = &RejectionError{Reason: types.ReasonInvalidInstallments}
	ErrInvalidNumericField     = &RejectionError{Reason: types.ReasonInvalidNumericField}
)
