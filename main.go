// Command installment-validator validates contract installment exports and
// flushes accepted and rejected records in batches.
//
// USAGE:
//   installment-validator process   - Ingest one input file
//   installment-validator check-id  - Check CPF/CNPJ ids
//   installment-validator version   - Display the application version
package main

import (
	"github.com/ginjaninja78/contract-installment-validator/cmd"
)

func main() {
	cmd.Execute()
}
