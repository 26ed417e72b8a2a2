package validation

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

// brlPrefix is the currency symbol followed by a no-break space, as rendered
// by the pt-BR locale.
const brlPrefix = "R$\u00a0"

// Normalize converts an accepted record with the default options.
func Normalize(raw types.RawRecord) (types.NormalizedRecord, error) {
	return NewValidator().normalize(raw)
}

func (v *Validator) normalize(raw types.RawRecord) (types.NormalizedRecord, error) {
	n := &normalizer{blankMoneyAsZero: v.options.BlankMoneyAsZero}

	out := types.NormalizedRecord{
		InstitutionID:        n.integer(types.HeaderInstitutionID, raw.InstitutionID),
		Branch:               n.integer(types.HeaderBranch, raw.Branch),
		ClientID:             n.integer(types.HeaderClientID, raw.ClientID),
		ClientName:           raw.ClientName,
		TaxpayerID:           raw.TaxpayerID,
		ContractID:           n.integer(types.HeaderContractID, raw.ContractID),
		ContractDate:         raw.ContractDate,
		InstallmentCount:     n.integer(types.HeaderInstallmentCount, raw.InstallmentCount),
		TotalValue:           n.money(types.HeaderTotalValue, raw.TotalValue),
		ProductCode:          n.integer(types.HeaderProductCode, raw.ProductCode),
		ProductDescription:   raw.ProductDescription,
		PortfolioCode:        n.integer(types.HeaderPortfolioCode, raw.PortfolioCode),
		PortfolioDescription: raw.PortfolioDescription,
		ProposalID:           n.integer(types.HeaderProposalID, raw.ProposalID),
		InstallmentNumber:    n.integer(types.HeaderInstallmentNumber, raw.InstallmentNumber),
		InstallmentType:      raw.InstallmentType,
		InstallmentSequence:  n.integer(types.HeaderInstallmentSequence, raw.InstallmentSequence),
		DueDate:              raw.DueDate,
		InstallmentValue:     n.money(types.HeaderInstallmentValue, raw.InstallmentValue),
		LateFeeValue:         n.money(types.HeaderLateFeeValue, raw.LateFeeValue),
		PenaltyValue:         n.money(types.HeaderPenaltyValue, raw.PenaltyValue),
		OtherChargesValue:    n.money(types.HeaderOtherChargesValue, raw.OtherChargesValue),
		TaxValue:             n.money(types.HeaderTaxValue, raw.TaxValue),
		DiscountValue:        n.money(types.HeaderDiscountValue, raw.DiscountValue),
		CurrentValue:         n.money(types.HeaderCurrentValue, raw.CurrentValue),
		InstallmentStatus:    raw.InstallmentStatus,
		OverdueStatus:        raw.OverdueStatus,
	}
	if n.err != nil {
		return types.NormalizedRecord{}, n.err
	}
	return out, nil
}

// normalizer keeps the first parse failure so every field is handled in one
// pass without repeating error checks at each call site.
type normalizer struct {
	blankMoneyAsZero bool
	err              error
}

func (n *normalizer) integer(field, value string) int64 {
	if n.err != nil {
		return 0
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		n.err = rejection(types.ReasonInvalidNumericField, field, value)
		return 0
	}
	return i
}

func (n *normalizer) money(field, value string) string {
	if n.err != nil {
		return ""
	}
	if strings.TrimSpace(value) == "" && n.blankMoneyAsZero {
		return FormatBRL(decimal.Zero)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		n.err = rejection(types.ReasonInvalidNumericField, field, value)
		return ""
	}
	return FormatBRL(d)
}

// FormatBRL renders d in the pt-BR currency format with exactly two fraction
// digits, "." as the thousands separator and "," as the decimal separator.
// Example: 1234567.891 -> "R$ 1.234.567,89" (no-break space after the symbol).
func FormatBRL(d decimal.Decimal) string {
	rounded := d.Round(2)
	fixed := rounded.Abs().StringFixed(2)

	intPart, fracPart := fixed, "00"
	if dot := strings.IndexByte(fixed, '.'); dot >= 0 {
		intPart, fracPart = fixed[:dot], fixed[dot+1:]
	}

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(brlPrefix)
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteByte(intPart[i])
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}
