package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

// validRecord returns a record that passes every check.
func validRecord() types.RawRecord {
	return types.RawRecord{
		InstitutionID:        "533",
		Branch:               "32",
		ClientID:             "733067",
		ClientName:           "CLIENTE 1",
		TaxpayerID:           "11144477735",
		ContractID:           "733140",
		ContractDate:         "20221227",
		InstallmentCount:     "10",
		TotalValue:           "1000.00",
		ProductCode:          "777",
		ProductDescription:   "CDC PESSOA JURIDICA",
		PortfolioCode:        "17",
		PortfolioDescription: "CRÉDITO PJ",
		ProposalID:           "798952",
		InstallmentNumber:    "1",
		InstallmentType:      "Original",
		InstallmentSequence:  "0",
		DueDate:              "20220406",
		InstallmentValue:     "100.00",
		LateFeeValue:         "12.5",
		PenaltyValue:         "0",
		OtherChargesValue:    "",
		TaxValue:             "1234.567",
		DiscountValue:        "0",
		CurrentValue:         "1234567.891",
		InstallmentStatus:    "Aberta",
		OverdueStatus:        "Vencida",
	}
}

var brlPattern = regexp.MustCompile(`^-?R\$\x{00a0}\d{1,3}(\.\d{3})*,\d{2}$`)

func TestProcessAccepts(t *testing.T) {
	raw := validRecord()
	rec, err := NewValidator().Process(raw)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if rec.TotalValue != "R$\u00a01.000,00" {
		t.Errorf("TotalValue = %q", rec.TotalValue)
	}
	if rec.InstallmentValue != "R$\u00a0100,00" {
		t.Errorf("InstallmentValue = %q", rec.InstallmentValue)
	}
	if rec.OtherChargesValue != "R$\u00a00,00" {
		t.Errorf("blank OtherChargesValue = %q", rec.OtherChargesValue)
	}
	if rec.CurrentValue != "R$\u00a01.234.567,89" {
		t.Errorf("CurrentValue = %q", rec.CurrentValue)
	}
	if rec.TaxpayerID != raw.TaxpayerID || rec.ClientName != raw.ClientName {
		t.Errorf("text fields changed: %+v", rec)
	}
}

func TestProcessRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *types.RawRecord)
		want   *RejectionError
	}{
		{"short id", func(r *types.RawRecord) { r.TaxpayerID = "123" }, ErrInvalidIdentifierFormat},
		{"empty id", func(r *types.RawRecord) { r.TaxpayerID = "" }, ErrInvalidIdentifierFormat},
		{"twelve digits", func(r *types.RawRecord) { r.TaxpayerID = "111444777351" }, ErrInvalidIdentifierFormat},
		{"bad cpf", func(r *types.RawRecord) { r.TaxpayerID = "11144477736" }, ErrInvalidCPF},
		{"repeated cpf", func(r *types.RawRecord) { r.TaxpayerID = "11111111111" }, ErrInvalidCPF},
		{"bad cnpj", func(r *types.RawRecord) { r.TaxpayerID = "11444777000162" }, ErrInvalidCNPJ},
		{"repeated cnpj", func(r *types.RawRecord) { r.TaxpayerID = "22222222222222" }, ErrInvalidCNPJ},
		{"installment mismatch", func(r *types.RawRecord) { r.InstallmentValue = "99.00" }, ErrInvalidInstallments},
		{"zero count", func(r *types.RawRecord) { r.InstallmentCount = "0" }, ErrInvalidInstallments},
		// The installment check truncates the count; normalization does not.
		{"fractional count", func(r *types.RawRecord) { r.InstallmentCount = "10.7" }, ErrInvalidNumericField},
		{"bad integer", func(r *types.RawRecord) { r.Branch = "32a" }, ErrInvalidNumericField},
		{"padded integer", func(r *types.RawRecord) { r.ProposalID = " 798952" }, ErrInvalidNumericField},
		{"bad money", func(r *types.RawRecord) { r.LateFeeValue = "12,50" }, ErrInvalidNumericField},
		// Identifier checks run before installment checks.
		{"first failure wins", func(r *types.RawRecord) {
			r.TaxpayerID = "11144477736"
			r.InstallmentValue = "99.00"
		}, ErrInvalidCPF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRecord()
			tt.mutate(&raw)
			_, err := NewValidator().Process(raw)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Process() error = %v, want %v", err, tt.want)
			}
			rej, ok := Outcome(raw, err)
			if !ok || rej.Reason != tt.want.Reason || rej.Record != raw {
				t.Errorf("Outcome() = %+v, %v", rej, ok)
			}
		})
	}
}

func TestProcessPunctuatedIDs(t *testing.T) {
	for _, id := range []string{"111.444.777-35", "11.444.777/0001-61"} {
		raw := validRecord()
		raw.TaxpayerID = id
		if _, err := NewValidator().Process(raw); err != nil {
			t.Errorf("Process(%q) error = %v", id, err)
		}
	}
}

func TestBlankMoneyRejectedWhenDisabled(t *testing.T) {
	v := NewValidatorWithOptions(ValidationOptions{BlankMoneyAsZero: false})
	_, err := v.Process(validRecord())
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Field != types.HeaderOtherChargesValue {
		t.Fatalf("Process() error = %v, want rejection on %s", err, types.HeaderOtherChargesValue)
	}
}

func TestValidateInstallments(t *testing.T) {
	tests := []struct {
		total, count, value string
		want                bool
	}{
		{"1000.00", "10", "100.00", true},
		{"1000.00", "10", "99.00", false},
		{"1000", "10", "100", true},
		{"0.3", "3", "0.1", true},
		// Recurring quotient: strict equality, no tolerance.
		{"1000.00", "3", "333.33", false},
		{"1000.00", "3", "333.3333333333333333", false},
		// Exact quotients longer than 16 fractional digits.
		{"1", "1048576", "0.00000095367431640625", true},
		{"1", "1048576", "0.0000009536743164", false},
		{"1000.00", "10.7", "100.00", true},
		{"1000.00", "0", "0", false},
		{"1000.00", "-10", "-100", false},
		{"abc", "10", "100", false},
		{"1000.00", "", "100", false},
		{"1000.00", "10", "", false},
	}
	for _, tt := range tests {
		raw := types.RawRecord{TotalValue: tt.total, InstallmentCount: tt.count, InstallmentValue: tt.value}
		if got := ValidateInstallments(raw); got != tt.want {
			t.Errorf("ValidateInstallments(%s / %s == %s) = %v, want %v", tt.total, tt.count, tt.value, got, tt.want)
		}
	}
}

func TestNormalizeIntegerFields(t *testing.T) {
	raw := validRecord()
	rec, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	pairs := []struct {
		got int64
		raw string
	}{
		{rec.InstitutionID, raw.InstitutionID},
		{rec.Branch, raw.Branch},
		{rec.ClientID, raw.ClientID},
		{rec.ContractID, raw.ContractID},
		{rec.InstallmentCount, raw.InstallmentCount},
		{rec.ProductCode, raw.ProductCode},
		{rec.PortfolioCode, raw.PortfolioCode},
		{rec.ProposalID, raw.ProposalID},
		{rec.InstallmentNumber, raw.InstallmentNumber},
		{rec.InstallmentSequence, raw.InstallmentSequence},
	}
	for _, p := range pairs {
		want, _ := strconv.ParseInt(p.raw, 10, 64)
		if p.got != want {
			t.Errorf("integer field = %d, want %d", p.got, want)
		}
	}
	for _, money := range []string{
		rec.TotalValue, rec.InstallmentValue, rec.LateFeeValue, rec.PenaltyValue,
		rec.OtherChargesValue, rec.TaxValue, rec.DiscountValue, rec.CurrentValue,
	} {
		if !brlPattern.MatchString(money) {
			t.Errorf("money field %q does not match BRL format", money)
		}
	}
}

func TestFormatBRL(t *testing.T) {
	tests := map[string]string{
		"0":           "R$\u00a00,00",
		"1":           "R$\u00a01,00",
		"12.5":        "R$\u00a012,50",
		"999.999":     "R$\u00a01.000,00",
		"1234.567":    "R$\u00a01.234,57",
		"100000":      "R$\u00a0100.000,00",
		"1234567.891": "R$\u00a01.234.567,89",
		"-1500.4":     "-R$\u00a01.500,40",
		"-0.001":      "R$\u00a00,00",
	}
	for in, want := range tests {
		if got := FormatBRL(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatBRL(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatRejections(t *testing.T) {
	if got := FormatRejections(nil); got != "No rejected records.\n" {
		t.Errorf("FormatRejections(nil) = %q", got)
	}
	raw := validRecord()
	out := FormatRejections([]types.RejectionRecord{{Reason: types.ReasonInvalidInstallments, Record: raw}})
	if !strings.Contains(out, "1 rejected record(s)") || !strings.Contains(out, "[Invalid Installments] contract 733140") {
		t.Errorf("FormatRejections() = %q", out)
	}
}

func TestRejectionErrorMessage(t *testing.T) {
	err := &RejectionError{Reason: types.ReasonInvalidIndividualID, Field: "nrCpfCnpj", Value: "1"}
	if err.Error() != "Invalid CPF: field 'nrCpfCnpj' (value: '1')" {
		t.Errorf("Error() = %q", err.Error())
	}
	if ErrInvalidCNPJ.Error() != "Invalid CNPJ" {
		t.Errorf("Error() = %q", ErrInvalidCNPJ.Error())
	}
}
