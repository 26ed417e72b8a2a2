// =============================================================================
// Contract Installment Validator - Taxpayer Identifier Checksums
// =============================================================================
//
// Brazilian taxpayer identifiers carry two trailing check digits:
//   - CPF  (individuals): 11 digits
//   - CNPJ (legal entities): 14 digits
//
// Both use the same modulo-11 rule for each check digit:
//   remainder  = weightedSum % 11
//   checkDigit = 0 if remainder < 2, else 11 - remainder
//
// Identifiers made of a single repeated digit pass the arithmetic but are
// never issued, so they are rejected up front.
//
// =============================================================================

package validation

import "strings"

const (
	// CPFLength is the digit count of an individual taxpayer id.
	CPFLength = 11

	// CNPJLength is the digit count of an entity taxpayer id.
	CNPJLength = 14
)

var (
	cpfFirstWeights  = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfSecondWeights = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}

	cnpjFirstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// OnlyDigits strips every non-digit character from s.
// Example: "111.444.777-35" -> "11144477735"
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ValidateTaxpayerID reports whether raw is a well-formed CPF or CNPJ.
// Formatting punctuation is ignored; the algorithm is chosen by digit count.
func ValidateTaxpayerID(raw string) bool {
	digits := OnlyDigits(raw)
	switch len(digits) {
	case CPFLength:
		return ValidCPF(digits)
	case CNPJLength:
		return ValidCNPJ(digits)
	default:
		return false
	}
}

// ValidCPF validates an 11-character digit string.
func ValidCPF(digits string) bool {
	if len(digits) != CPFLength || !allDigits(digits) || allSame(digits) {
		return false
	}
	if checkDigit(digits, cpfFirstWeights) != int(digits[9]-'0') {
		return false
	}
	return checkDigit(digits, cpfSecondWeights) == int(digits[10]-'0')
}

// ValidCNPJ validates a 14-character digit string.
func ValidCNPJ(digits string) bool {
	if len(digits) != CNPJLength || !allDigits(digits) || allSame(digits) {
		return false
	}
	if checkDigit(digits, cnpjFirstWeights) != int(digits[12]-'0') {
		return false
	}
	return checkDigit(digits, cnpjSecondWeights) == int(digits[13]-'0')
}

// checkDigit applies weights to the leading len(weights) digits.
func checkDigit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
