package xmlwriter

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

type parsedDoc struct {
	XMLName xml.Name
	Run     string `xml:"run,attr"`
	Batch   int    `xml:"batch,attr"`
	Items   []struct {
		N      int    `xml:"n,attr"`
		Client string `xml:"nmClient"`
		Value  string `xml:"vlPresta"`
		Inst   int64  `xml:"nrInst"`
	} `xml:"installment"`
}

func sampleBatch() types.Batch {
	return types.Batch{
		RunID:    "run-1",
		Sequence: 3,
		Source:   "carteira.csv",
		Accepted: []types.NormalizedRecord{
			{InstitutionID: 7, ClientName: "Silva & Filhos", InstallmentValue: "R$\u00a0100,00"},
			{InstitutionID: 8, ClientName: "Maria <ME>"},
		},
		Rejected: []types.RejectionRecord{{Reason: types.ReasonInvalidIndividualID}},
	}
}

func TestGenerate(t *testing.T) {
	data, err := Generate(sampleBatch())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(string(data), `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing declaration:\n%s", data)
	}

	var doc parsedDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not well-formed: %v\n%s", err, data)
	}
	if doc.XMLName.Local != "installments" || doc.Run != "run-1" || doc.Batch != 3 {
		t.Errorf("root = %+v", doc)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("items = %d, want only the accepted records", len(doc.Items))
	}
	if doc.Items[0].N != 1 || doc.Items[1].N != 2 {
		t.Errorf("indexes = %d, %d", doc.Items[0].N, doc.Items[1].N)
	}
	if doc.Items[0].Client != "Silva & Filhos" || doc.Items[1].Client != "Maria <ME>" {
		t.Errorf("clients = %q, %q", doc.Items[0].Client, doc.Items[1].Client)
	}
	if doc.Items[0].Value != "R$\u00a0100,00" || doc.Items[0].Inst != 7 {
		t.Errorf("first item = %+v", doc.Items[0])
	}
}

func TestGenerateWithOptions(t *testing.T) {
	options := DefaultGenerateOptions()
	options.IncludeXMLDeclaration = false
	options.RootElement = "parcelas"
	options.RecordElement = "parcela"
	options.FirstIndex = 11
	options.RootAttributes = map[string]string{"origem": "legado", "versao": "2"}

	data, err := GenerateWithOptions(sampleBatch(), options)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.HasPrefix(out, "<?xml") {
		t.Error("declaration should be omitted")
	}
	for _, want := range []string{`<parcelas `, `versao="2"`, `origem="legado"`, `<parcela n="11">`, `<parcela n="12">`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateEmptyBatch(t *testing.T) {
	data, err := Generate(types.Batch{RunID: "r", Sequence: 1})
	if err != nil {
		t.Fatal(err)
	}
	var doc parsedDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Items) != 0 {
		t.Errorf("items = %d", len(doc.Items))
	}
}

func TestGenerateXSD(t *testing.T) {
	xsd := string(GenerateXSD(DefaultGenerateOptions()))
	for _, want := range []string{
		`<xs:element name="installments">`,
		`<xs:element name="nrInst" type="xs:long"/>`,
		`<xs:element name="nmClient" type="xs:string"/>`,
		`<xs:element name="idSitVen" type="xs:string"/>`,
	} {
		if !strings.Contains(xsd, want) {
			t.Errorf("xsd missing %q", want)
		}
	}
	if got := strings.Count(xsd, `<xs:element name="`) - 2; got != len(types.Headers) {
		t.Errorf("record fields = %d, want %d", got, len(types.Headers))
	}
	var v struct{ XMLName xml.Name }
	if err := xml.Unmarshal([]byte(xsd), &v); err != nil {
		t.Errorf("xsd is not well-formed: %v", err)
	}
}
