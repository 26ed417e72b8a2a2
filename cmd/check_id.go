package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/contract-installment-validator/internal/validation"
)

var checkIDCmd = &cobra.Command{
	Use:   "check-id ID...",
	Short: "Check CPF/CNPJ taxpayer ids",
	Long: `Check one or more taxpayer ids. Punctuation is ignored; 11 digits are
checked as a CPF and 14 digits as a CNPJ. Exits 1 if any id is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invalid := 0
		for _, id := range args {
			verdict := describeID(id)
			if !validation.ValidateTaxpayerID(id) {
				invalid++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", id, verdict)
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d id(s) invalid", invalid, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkIDCmd)
}

func describeID(id string) string {
	digits := validation.OnlyDigits(id)
	switch len(digits) {
	case validation.CPFLength:
		if validation.ValidCPF(digits) {
			return "valid CPF"
		}
		return "invalid CPF"
	case validation.CNPJLength:
		if validation.ValidCNPJ(digits) {
			return "valid CNPJ"
		}
		return "invalid CNPJ"
	default:
		return fmt.Sprintf("invalid format (%d digits)", len(digits))
	}
}
