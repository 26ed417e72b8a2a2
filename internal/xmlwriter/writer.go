// =============================================================================
// Contract Installment Validator - XML Writer Module
// =============================================================================
//
// This module renders the accepted records of a flushed batch as an XML
// document, and can emit a matching XSD.
//
// XML STRUCTURE:
//
//   <installments run="3f2a..." batch="1" source="carteira.csv">
//     <installment n="1">
//       <nrInst>1</nrInst>
//       <nrCpfCnpj>111.444.777-35</nrCpfCnpj>
//       <vlPresta>R$ 100,00</vlPresta>
//       ...
//     </installment>
//     <installment n="2">
//       ...
//     </installment>
//   </installments>
//
// Child element names follow the input headers. Numbering restarts at
// FirstIndex for every document; a caller that wants run-wide numbering
// passes the running offset.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement names the document element.
	// Default: "installments"
	RootElement string

	// RecordElement names the per-record element.
	// Default: "installment"
	RecordElement string

	// RootAttributes are additional attributes for the root element.
	// Example: {"xmlns": "http://example.com/schema"}
	RootAttributes map[string]string

	// FirstIndex is the "n" attribute of the first record.
	// Default: 1
	FirstIndex int
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "installments",
		RecordElement:         "installment",
		RootAttributes:        make(map[string]string),
		FirstIndex:            1,
	}
}

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Document is the root element.
type Document struct {
	XMLName      xml.Name
	RunID        string        `xml:"run,attr,omitempty"`
	Batch        int           `xml:"batch,attr"`
	Source       string        `xml:"source,attr,omitempty"`
	Attributes   []xml.Attr    `xml:",any,attr"`
	Installments []Installment `xml:"installment"`
}

// Installment wraps one accepted record with its index attribute.
type Installment struct {
	XMLName xml.Name
	Index   int `xml:"n,attr"`
	types.NormalizedRecord
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders the accepted records of batch with the default options.
func Generate(batch types.Batch) ([]byte, error) {
	return GenerateWithOptions(batch, DefaultGenerateOptions())
}

// GenerateWithOptions renders the accepted records of batch.
func GenerateWithOptions(batch types.Batch, options GenerateOptions) ([]byte, error) {
	options = withDefaults(options)

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	encoder := xml.NewEncoder(&buffer)
	encoder.Indent("", options.Indent)
	if err := encoder.Encode(buildDocument(batch, options)); err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	buffer.WriteString("\n")

	return buffer.Bytes(), nil
}

func buildDocument(batch types.Batch, options GenerateOptions) Document {
	doc := Document{
		XMLName:      xml.Name{Local: options.RootElement},
		RunID:        batch.RunID,
		Batch:        batch.Sequence,
		Source:       batch.Source,
		Installments: make([]Installment, 0, len(batch.Accepted)),
	}

	for _, key := range sortedKeys(options.RootAttributes) {
		doc.Attributes = append(doc.Attributes, xml.Attr{
			Name:  xml.Name{Local: key},
			Value: options.RootAttributes[key],
		})
	}

	for i, record := range batch.Accepted {
		doc.Installments = append(doc.Installments, Installment{
			XMLName:          xml.Name{Local: options.RecordElement},
			Index:            options.FirstIndex + i,
			NormalizedRecord: record,
		})
	}
	return doc
}

func withDefaults(options GenerateOptions) GenerateOptions {
	defaults := DefaultGenerateOptions()
	if options.RootElement == "" {
		options.RootElement = defaults.RootElement
	}
	if options.RecordElement == "" {
		options.RecordElement = defaults.RecordElement
	}
	if options.FirstIndex == 0 {
		options.FirstIndex = defaults.FirstIndex
	}
	return options
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD creates an XSD describing documents produced with options.
// Integer fields of the normalized record map to xs:long, everything else to
// xs:string.
func GenerateXSD(options GenerateOptions) []byte {
	options = withDefaults(options)

	var buffer bytes.Buffer
	buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
`)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="run" type="xs:string"/>
      <xs:attribute name="batch" type="xs:positiveInteger" use="required"/>
      <xs:attribute name="source" type="xs:string"/>
      <xs:anyAttribute processContents="lax"/>
    </xs:complexType>
  </xs:element>

`, options.RootElement, options.RecordElement)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, options.RecordElement)

	for _, field := range recordFields() {
		fmt.Fprintf(&buffer, "%s<xs:element name=\"%s\" type=\"%s\"/>\n",
			strings.Repeat("  ", 4), field.name, field.xsdType)
	}

	buffer.WriteString(`      </xs:sequence>
      <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`)

	return buffer.Bytes()
}

type xsdField struct {
	name    string
	xsdType string
}

// recordFields lists the NormalizedRecord elements in declaration order.
func recordFields() []xsdField {
	t := reflect.TypeOf(types.NormalizedRecord{})
	fields := make([]xsdField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("xml"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		xsdType := "xs:string"
		if f.Type.Kind() == reflect.Int64 {
			xsdType = "xs:long"
		}
		fields = append(fields, xsdField{name: name, xsdType: xsdType})
	}
	return fields
}
