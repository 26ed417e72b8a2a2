package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckID(t *testing.T) {
	out, err := execute(t, "check-id", "111.444.777-35", "11.444.777/0001-61")
	if err != nil {
		t.Fatalf("check-id error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid CPF") || !strings.Contains(out, "valid CNPJ") {
		t.Errorf("output = %q", out)
	}
}

func TestCheckIDInvalid(t *testing.T) {
	out, err := execute(t, "check-id", "11144477736", "123")
	if err == nil || !strings.Contains(err.Error(), "2 of 2") {
		t.Fatalf("check-id error = %v", err)
	}
	if !strings.Contains(out, "invalid CPF") || !strings.Contains(out, "invalid format (3 digits)") {
		t.Errorf("output = %q", out)
	}
}

func TestProcessDryRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	csv := "nrInst;nrAgencia;cdClient;nmClient;nrCpfCnpj;nrContrato;dtContrato;qtPrestacoes;vlTotal;cdProduto;dsProduto;cdCarteira;dsCarteira;nrProposta;nrPresta;tpPresta;nrSeqPre;dtVctPre;vlPresta;vlMora;vlMulta;vlOutAcr;vlIof;vlDescon;vlAtual;idSituac;idSitVen\n" +
		"533;32;733067;CLIENTE 1;11144477735;733140;20221227;10;1000.00;777;CDC;17;PJ;798952;1;Original;0;20220406;100.00;0;0;0;0;0;100.00;Aberta;Vencida\n" +
		"533;32;733067;CLIENTE 2;123;733141;20221227;10;1000.00;777;CDC;17;PJ;798953;1;Original;0;20220406;100.00;0;0;0;0;0;100.00;Aberta;Vencida\n"
	if err := os.WriteFile(input, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "process",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--input", input,
		"--batch-size", "10",
		"--dry-run",
	)
	t.Cleanup(func() {
		inputPath, batchSize, dryRun = "", 0, false
	})
	if err != nil {
		t.Fatalf("process error = %v\n%s", err, out)
	}
	for _, want := range []string{"[Invalid CPF or CNPJ]", "Processed:      2", "Accepted:       1", "Rejected:       1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(input); err != nil {
		t.Error("dry run must leave the input in place")
	}
}
