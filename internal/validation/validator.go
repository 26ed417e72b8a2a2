// =============================================================================
// Contract Installment Validator - Record Validator
// =============================================================================
//
// This module decides, for one RawRecord, whether it is accepted or rejected.
//
// VALIDATION ORDER (first failure wins, only one reason is ever recorded):
//   1. Taxpayer id must reduce to 11 or 14 digits   -> "Invalid CPF or CNPJ"
//   2. 11 digits must pass the CPF checksum          -> "Invalid CPF"
//   3. 14 digits must pass the CNPJ checksum         -> "Invalid CNPJ"
//   4. total / count must equal installment value    -> "Invalid Installments"
//   5. Numeric fields must parse during normalize    -> "Invalid Numeric Field"
//
// The branch in steps 2-3 is chosen on the stripped digit count, so a
// punctuated id ("111.444.777-35") follows the same path as its bare digits.
//
// INSTALLMENT ARITHMETIC:
//   The comparison is exact decimal equality with no tolerance band. Decimal
//   arithmetic avoids binary floating point artifacts (0.3 / 3 == 0.1 holds),
//   but recurring quotients still reject: 1000.00 / 3 != 333.33.
//   It is evaluated as value * count == total, which never rounds.
//
//   The count is truncated for this check only. A fractional count such as
//   "10.7" can pass step 4 and is then rejected in step 5.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator runs the per-record validation pipeline.
type Validator struct {
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// BlankMoneyAsZero formats empty monetary fields as R$ 0,00 instead of
	// rejecting the record. Exports leave optional charges blank.
	// Default: true
	BlankMoneyAsZero bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		BlankMoneyAsZero: true,
	}
}

// NewValidator creates a Validator with the default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Process validates raw and, when it passes, returns its normalized form.
// A non-nil error is always a *RejectionError.
func (v *Validator) Process(raw types.RawRecord) (types.NormalizedRecord, error) {
	digits := OnlyDigits(raw.TaxpayerID)

	switch len(digits) {
	case CPFLength:
		if !ValidCPF(digits) {
			return types.NormalizedRecord{}, rejection(types.ReasonInvalidIndividualID, types.HeaderTaxpayerID, raw.TaxpayerID)
		}
	case CNPJLength:
		if !ValidCNPJ(digits) {
			return types.NormalizedRecord{}, rejection(types.ReasonInvalidEntityID, types.HeaderTaxpayerID, raw.TaxpayerID)
		}
	default:
		return types.NormalizedRecord{}, rejection(types.ReasonInvalidIdentifierFormat, types.HeaderTaxpayerID, raw.TaxpayerID)
	}

	if !ValidateInstallments(raw) {
		return types.NormalizedRecord{}, &RejectionError{Reason: types.ReasonInvalidInstallments}
	}

	return v.normalize(raw)
}

// Outcome converts a Process result into a RejectionRecord when err is a
// rejection. ok is false for accepted records.
func Outcome(raw types.RawRecord, err error) (types.RejectionRecord, bool) {
	if err == nil {
		return types.RejectionRecord{}, false
	}
	reason := types.ReasonInvalidNumericField
	var rej *RejectionError
	if errors.As(err, &rej) {
		reason = rej.Reason
	}
	return types.RejectionRecord{Reason: reason, Record: raw}, true
}

func rejection(reason types.Reason, field, value string) *RejectionError {
	return &RejectionError{Reason: reason, Field: field, Value: value}
}

// =============================================================================
// INSTALLMENT CONSISTENCY
// =============================================================================

// ValidateInstallments reports whether total / count equals the installment
// value exactly. The check is done as value * count == total so no quotient
// is ever rounded. The count is read as a whole number (fractional part
// truncated); a zero, negative or unparsable count fails.
func ValidateInstallments(raw types.RawRecord) bool {
	total, err := parseDecimal(raw.TotalValue)
	if err != nil {
		return false
	}
	count, err := parseDecimal(raw.InstallmentCount)
	if err != nil {
		return false
	}
	count = count.Truncate(0)
	if !count.IsPositive() {
		return false
	}
	value, err := parseDecimal(raw.InstallmentValue)
	if err != nil {
		return false
	}
	return value.Mul(count).Equal(total)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(s)
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatRejections formats rejected records for a log file or console.
func FormatRejections(rejections []types.RejectionRecord) string {
	if len(rejections) == 0 {
		return "No rejected records.\n"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%d rejected record(s):\n", len(rejections)))
	for i, r := range rejections {
		builder.WriteString(fmt.Sprintf("%d. [%s] contract %s, installment %s, taxpayer '%s'\n",
			i+1,
			r.Reason,
			r.Record.ContractID,
			r.Record.InstallmentNumber,
			r.Record.TaxpayerID,
		))
	}
	return builder.String()
}
