package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
	"github.com/ginjaninja78/contract-installment-validator/internal/xmlwriter"
	"github.com/ginjaninja78/contract-installment-validator/pkg/utils"
)

// SchemaFileName is written next to the XML exports on first use.
const SchemaFileName = "installments.xsd"

// XML writes the accepted records of each batch to an XML file. Record
// numbering continues across the batches of a run.
type XML struct {
	dir        string
	nameFormat string
	options    xmlwriter.GenerateOptions

	written int
}

// NewXML writes documents to dir, named after nameFormat.
func NewXML(dir, nameFormat string, options xmlwriter.GenerateOptions) *XML {
	return &XML{dir: dir, nameFormat: nameFormat, options: options}
}

// Flush writes b's accepted records. Batches without accepted records are
// skipped.
func (x *XML) Flush(_ context.Context, b types.Batch) error {
	if len(b.Accepted) == 0 {
		return nil
	}

	if err := x.ensureSchema(); err != nil {
		return wrap("xml", b, err)
	}

	options := x.options
	options.FirstIndex = x.written + 1
	data, err := xmlwriter.GenerateWithOptions(b, options)
	if err != nil {
		return wrap("xml", b, err)
	}

	path := filepath.Join(x.dir, outputName(x.nameFormat, ".xml", b))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return wrap("xml", b, fmt.Errorf("failed to write XML file: %w", err))
	}

	x.written += len(b.Accepted)
	return nil
}

func (x *XML) ensureSchema() error {
	path := filepath.Join(x.dir, SchemaFileName)
	if utils.FileExists(path) {
		return nil
	}
	if err := os.WriteFile(path, xmlwriter.GenerateXSD(x.options), 0644); err != nil {
		return fmt.Errorf("failed to write XSD: %w", err)
	}
	return nil
}
