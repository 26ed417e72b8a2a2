package sink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/contract-installment-validator/internal/batch"
	"github.com/ginjaninja78/contract-installment-validator/internal/types"
	"github.com/ginjaninja78/contract-installment-validator/internal/xmlwriter"
)

func testBatch() types.Batch {
	return types.Batch{
		RunID:    "run-1",
		Sequence: 2,
		Source:   "/data/carteira.csv",
		Accepted: []types.NormalizedRecord{
			{InstitutionID: 1, ContractID: 42, InstallmentNumber: 1, TaxpayerID: "11144477735", InstallmentValue: "R$\u00a0100,00"},
		},
		Rejected: []types.RejectionRecord{
			{Reason: types.ReasonInvalidEntityID, Record: types.RawRecord{ContractID: "43", InstallmentNumber: "2", TaxpayerID: "11444777000160", ClientName: "Acme"}},
		},
	}
}

func TestMultiForwardsToAllAndJoinsErrors(t *testing.T) {
	var calls []string
	first := batch.SinkFunc(func(context.Context, types.Batch) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	second := batch.SinkFunc(func(context.Context, types.Batch) error {
		calls = append(calls, "second")
		return nil
	})
	third := batch.SinkFunc(func(context.Context, types.Batch) error {
		calls = append(calls, "third")
		return errors.New("third failed")
	})

	m := NewMulti(first, nil, second, third)
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
	err := m.Flush(context.Background(), testBatch())
	if strings.Join(calls, ",") != "first,second,third" {
		t.Errorf("calls = %v", calls)
	}
	if err == nil || !strings.Contains(err.Error(), "first failed") || !strings.Contains(err.Error(), "third failed") {
		t.Errorf("Flush() error = %v", err)
	}
}

func TestMultiEmpty(t *testing.T) {
	var m *Multi
	if err := m.Flush(context.Background(), testBatch()); err != nil {
		t.Error(err)
	}
	if err := NewMulti().Flush(context.Background(), testBatch()); err != nil {
		t.Error(err)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if err := NewLog(logger).Flush(context.Background(), testBatch()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"batch=2", "accepted=1", "rejected=1", `reason="Invalid CNPJ"`, "contract=43"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestRejectionLog(t *testing.T) {
	dir := t.TempDir()
	sink := NewRejectionLog(dir)

	if err := sink.Flush(context.Background(), types.Batch{RunID: "run-1", Sequence: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(sink.Path("run-1")); !os.IsNotExist(err) {
		t.Fatal("batch without rejections should not create the log")
	}

	if err := sink.Flush(context.Background(), testBatch()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "rejections_run-1.log"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Invalid CNPJ", "Contract:       43", "Taxpayer ID:    11444777000160"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %q:\n%s", want, data)
		}
	}
}

func TestRejectionLogUnwritableDir(t *testing.T) {
	sink := NewRejectionLog(filepath.Join(t.TempDir(), "missing"))
	err := sink.Flush(context.Background(), testBatch())
	if err == nil || !strings.Contains(err.Error(), "rejection log sink: batch 2") {
		t.Errorf("Flush() error = %v", err)
	}
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	if err := NewReport(dir, "{original}_{run}_batch{batch}").Flush(context.Background(), testBatch()); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "carteira_run-1_batch2.xlsx"))
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	accepted, err := f.GetRows(acceptedSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(accepted) != 2 || accepted[0][0] != types.HeaderInstitutionID {
		t.Fatalf("accepted rows = %v", accepted)
	}
	if accepted[1][5] != "42" || accepted[1][4] != "11144477735" {
		t.Errorf("accepted record = %v", accepted[1])
	}

	rejected, err := f.GetRows(rejectedSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rejected) != 2 || rejected[0][0] != reasonHeader || rejected[1][0] != "Invalid CNPJ" {
		t.Fatalf("rejected rows = %v", rejected)
	}
	if rejected[1][6] != "43" {
		t.Errorf("rejected contract = %q", rejected[1][6])
	}
}

func TestReportSkipsEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	if err := NewReport(dir, "{run}").Flush(context.Background(), types.Batch{RunID: "r", Sequence: 3}); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files = %d, want 0", len(entries))
	}
}

func TestXMLSinkNumbersAcrossBatches(t *testing.T) {
	dir := t.TempDir()
	sink := NewXML(dir, "{run}_batch{batch}", xmlwriter.DefaultGenerateOptions())

	first := testBatch()
	first.Sequence = 1
	second := testBatch()
	second.Sequence = 2
	for _, b := range []types.Batch{first, second} {
		if err := sink.Flush(context.Background(), b); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "run-1_batch2.xml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<installment n="2">`) {
		t.Errorf("second document should continue numbering:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, SchemaFileName)); err != nil {
		t.Errorf("schema not written: %v", err)
	}
}

func TestXMLSinkSkipsBatchWithoutAccepted(t *testing.T) {
	dir := t.TempDir()
	b := testBatch()
	b.Accepted = nil
	if err := NewXML(dir, "{run}", xmlwriter.DefaultGenerateOptions()).Flush(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files = %d, want 0", len(entries))
	}
}
