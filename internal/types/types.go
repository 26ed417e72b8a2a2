// =============================================================================
// Contract Installment Validator - Shared Types
// =============================================================================
//
// This package contains the record types shared by the row source, the
// validator, the batch accumulator and the sinks. Keeping them here avoids
// import cycles between those packages.
//
// RECORD LIFECYCLE:
//   RawRecord         : built once per CSV row, every value still text
//   NormalizedRecord  : built only for accepted rows, never mutated afterwards
//   RejectionRecord   : reason + original RawRecord for rejected rows
//   Batch             : accepted/rejected collections handed to a sink on flush
//
// =============================================================================

package types

// =============================================================================
// COLUMN HEADERS
// =============================================================================
// Header names as they appear in the contract export. Matching is exact.

const (
	HeaderInstitutionID        = "nrInst"
	HeaderBranch               = "nrAgencia"
	HeaderClientID             = "cdClient"
	HeaderClientName           = "nmClient"
	HeaderTaxpayerID           = "nrCpfCnpj"
	HeaderContractID           = "nrContrato"
	HeaderContractDate         = "dtContrato"
	HeaderInstallmentCount     = "qtPrestacoes"
	HeaderTotalValue           = "vlTotal"
	HeaderProductCode          = "cdProduto"
	HeaderProductDescription   = "dsProduto"
	HeaderPortfolioCode        = "cdCarteira"
	HeaderPortfolioDescription = "dsCarteira"
	HeaderProposalID           = "nrProposta"
	HeaderInstallmentNumber    = "nrPresta"
	HeaderInstallmentType      = "tpPresta"
	HeaderInstallmentSequence  = "nrSeqPre"
	HeaderDueDate              = "dtVctPre"
	HeaderInstallmentValue     = "vlPresta"
	HeaderLateFeeValue         = "vlMora"
	HeaderPenaltyValue         = "vlMulta"
	HeaderOtherChargesValue    = "vlOutAcr"
	HeaderTaxValue             = "vlIof"
	HeaderDiscountValue        = "vlDescon"
	HeaderCurrentValue         = "vlAtual"
	HeaderInstallmentStatus    = "idSituac"
	HeaderOverdueStatus        = "idSitVen"
)

// Headers lists every expected column in export order.
var Headers = []string{
	HeaderInstitutionID,
	HeaderBranch,
	HeaderClientID,
	HeaderClientName,
	HeaderTaxpayerID,
	HeaderContractID,
	HeaderContractDate,
	HeaderInstallmentCount,
	HeaderTotalValue,
	HeaderProductCode,
	HeaderProductDescription,
	HeaderPortfolioCode,
	HeaderPortfolioDescription,
	HeaderProposalID,
	HeaderInstallmentNumber,
	HeaderInstallmentType,
	HeaderInstallmentSequence,
	HeaderDueDate,
	HeaderInstallmentValue,
	HeaderLateFeeValue,
	HeaderPenaltyValue,
	HeaderOtherChargesValue,
	HeaderTaxValue,
	HeaderDiscountValue,
	HeaderCurrentValue,
	HeaderInstallmentStatus,
	HeaderOverdueStatus,
}

// =============================================================================
// RAW RECORD
// =============================================================================

// RawRecord is one contract installment row exactly as read from the source.
// All values are text regardless of their semantic type.
type RawRecord struct {
	InstitutionID        string `json:"nrInst"`
	Branch               string `json:"nrAgencia"`
	ClientID             string `json:"cdClient"`
	ClientName           string `json:"nmClient"`
	TaxpayerID           string `json:"nrCpfCnpj"`
	ContractID           string `json:"nrContrato"`
	ContractDate         string `json:"dtContrato"`
	InstallmentCount     string `json:"qtPrestacoes"`
	TotalValue           string `json:"vlTotal"`
	ProductCode          string `json:"cdProduto"`
	ProductDescription   string `json:"dsProduto"`
	PortfolioCode        string `json:"cdCarteira"`
	PortfolioDescription string `json:"dsCarteira"`
	ProposalID           string `json:"nrProposta"`
	InstallmentNumber    string `json:"nrPresta"`
	InstallmentType      string `json:"tpPresta"`
	InstallmentSequence  string `json:"nrSeqPre"`
	DueDate              string `json:"dtVctPre"`
	InstallmentValue     string `json:"vlPresta"`
	LateFeeValue         string `json:"vlMora"`
	PenaltyValue         string `json:"vlMulta"`
	OtherChargesValue    string `json:"vlOutAcr"`
	TaxValue             string `json:"vlIof"`
	DiscountValue        string `json:"vlDescon"`
	CurrentValue         string `json:"vlAtual"`
	InstallmentStatus    string `json:"idSituac"`
	OverdueStatus        string `json:"idSitVen"`
}

// RawRecordFromMap builds a RawRecord from a header -> value row.
// Missing headers become empty strings; absence is the row source's concern.
func RawRecordFromMap(row map[string]string) RawRecord {
	return RawRecord{
		InstitutionID:        row[HeaderInstitutionID],
		Branch:               row[HeaderBranch],
		ClientID:             row[HeaderClientID],
		ClientName:           row[HeaderClientName],
		TaxpayerID:           row[HeaderTaxpayerID],
		ContractID:           row[HeaderContractID],
		ContractDate:         row[HeaderContractDate],
		InstallmentCount:     row[HeaderInstallmentCount],
		TotalValue:           row[HeaderTotalValue],
		ProductCode:          row[HeaderProductCode],
		ProductDescription:   row[HeaderProductDescription],
		PortfolioCode:        row[HeaderPortfolioCode],
		PortfolioDescription: row[HeaderPortfolioDescription],
		ProposalID:           row[HeaderProposalID],
		InstallmentNumber:    row[HeaderInstallmentNumber],
		InstallmentType:      row[HeaderInstallmentType],
		InstallmentSequence:  row[HeaderInstallmentSequence],
		DueDate:              row[HeaderDueDate],
		InstallmentValue:     row[HeaderInstallmentValue],
		LateFeeValue:         row[HeaderLateFeeValue],
		PenaltyValue:         row[HeaderPenaltyValue],
		OtherChargesValue:    row[HeaderOtherChargesValue],
		TaxValue:             row[HeaderTaxValue],
		DiscountValue:        row[HeaderDiscountValue],
		CurrentValue:         row[HeaderCurrentValue],
		InstallmentStatus:    row[HeaderInstallmentStatus],
		OverdueStatus:        row[HeaderOverdueStatus],
	}
}

// Values returns the record's values in Headers order.
func (r RawRecord) Values() []string {
	return []string{
		r.InstitutionID,
		r.Branch,
		r.ClientID,
		r.ClientName,
		r.TaxpayerID,
		r.ContractID,
		r.ContractDate,
		r.InstallmentCount,
		r.TotalValue,
		r.ProductCode,
		r.ProductDescription,
		r.PortfolioCode,
		r.PortfolioDescription,
		r.ProposalID,
		r.InstallmentNumber,
		r.InstallmentType,
		r.InstallmentSequence,
		r.DueDate,
		r.InstallmentValue,
		r.LateFeeValue,
		r.PenaltyValue,
		r.OtherChargesValue,
		r.TaxValue,
		r.DiscountValue,
		r.CurrentValue,
		r.InstallmentStatus,
		r.OverdueStatus,
	}
}

// =============================================================================
// NORMALIZED RECORD
// =============================================================================

// NormalizedRecord is an accepted row with identifier-like fields parsed as
// integers and monetary fields rendered as BRL display strings.
type NormalizedRecord struct {
	InstitutionID        int64  `json:"nrInst" xml:"nrInst"`
	Branch               int64  `json:"nrAgencia" xml:"nrAgencia"`
	ClientID             int64  `json:"cdClient" xml:"cdClient"`
	ClientName           string `json:"nmClient" xml:"nmClient"`
	TaxpayerID           string `json:"nrCpfCnpj" xml:"nrCpfCnpj"`
	ContractID           int64  `json:"nrContrato" xml:"nrContrato"`
	ContractDate         string `json:"dtContrato" xml:"dtContrato"`
	InstallmentCount     int64  `json:"qtPrestacoes" xml:"qtPrestacoes"`
	TotalValue           string `json:"vlTotal" xml:"vlTotal"`
	ProductCode          int64  `json:"cdProduto" xml:"cdProduto"`
	ProductDescription   string `json:"dsProduto" xml:"dsProduto"`
	PortfolioCode        int64  `json:"cdCarteira" xml:"cdCarteira"`
	PortfolioDescription string `json:"dsCarteira" xml:"dsCarteira"`
	ProposalID           int64  `json:"nrProposta" xml:"nrProposta"`
	InstallmentNumber    int64  `json:"nrPresta" xml:"nrPresta"`
	InstallmentType      string `json:"tpPresta" xml:"tpPresta"`
	InstallmentSequence  int64  `json:"nrSeqPre" xml:"nrSeqPre"`
	DueDate              string `json:"dtVctPre" xml:"dtVctPre"`
	InstallmentValue     string `json:"vlPresta" xml:"vlPresta"`
	LateFeeValue         string `json:"vlMora" xml:"vlMora"`
	PenaltyValue         string `json:"vlMulta" xml:"vlMulta"`
	OtherChargesValue    string `json:"vlOutAcr" xml:"vlOutAcr"`
	TaxValue             string `json:"vlIof" xml:"vlIof"`
	DiscountValue        string `json:"vlDescon" xml:"vlDescon"`
	CurrentValue         string `json:"vlAtual" xml:"vlAtual"`
	InstallmentStatus    string `json:"idSituac" xml:"idSituac"`
	OverdueStatus        string `json:"idSitVen" xml:"idSitVen"`
}

// Values returns the record's values as display text in Headers order.
func (r NormalizedRecord) Values() []interface{} {
	return []interface{}{
		r.InstitutionID,
		r.Branch,
		r.ClientID,
		r.ClientName,
		r.TaxpayerID,
		r.ContractID,
		r.ContractDate,
		r.InstallmentCount,
		r.TotalValue,
		r.ProductCode,
		r.ProductDescription,
		r.PortfolioCode,
		r.PortfolioDescription,
		r.ProposalID,
		r.InstallmentNumber,
		r.InstallmentType,
		r.InstallmentSequence,
		r.DueDate,
		r.InstallmentValue,
		r.LateFeeValue,
		r.PenaltyValue,
		r.OtherChargesValue,
		r.TaxValue,
		r.DiscountValue,
		r.CurrentValue,
		r.InstallmentStatus,
		r.OverdueStatus,
	}
}

// =============================================================================
// REJECTIONS
// =============================================================================

// Reason is the fixed code attached to a rejected record.
type Reason string

const (
	// ReasonInvalidIdentifierFormat: taxpayer id does not reduce to 11 or 14 digits.
	ReasonInvalidIdentifierFormat Reason = "Invalid CPF or CNPJ"

	// ReasonInvalidIndividualID: 11-digit id fails its checksum.
	ReasonInvalidIndividualID Reason = "Invalid CPF"

	// ReasonInvalidEntityID: 14-digit id fails its checksum.
	ReasonInvalidEntityID Reason = "Invalid CNPJ"

	// ReasonInvalidInstallments: total / count != installment value.
	ReasonInvalidInstallments Reason = "Invalid Installments"

	// ReasonInvalidNumericField: an integer or monetary field does not parse.
	ReasonInvalidNumericField Reason = "Invalid Numeric Field"
)

// Reasons lists every rejection reason.
var Reasons = []Reason{
	ReasonInvalidIdentifierFormat,
	ReasonInvalidIndividualID,
	ReasonInvalidEntityID,
	ReasonInvalidInstallments,
	ReasonInvalidNumericField,
}

// RejectionRecord pairs a rejection reason with the original record.
type RejectionRecord struct {
	Reason Reason    `json:"reason"`
	Record RawRecord `json:"record"`
}

// =============================================================================
// BATCHES
// =============================================================================

// BatchState is the accumulator's buffer for one batching window.
// Processed always equals len(Accepted) + len(Rejected).
type BatchState struct {
	Processed int
	Accepted  []NormalizedRecord
	Rejected  []RejectionRecord
}

// Batch is a flushed window handed to a sink. The sink owns it afterwards.
type Batch struct {
	// RunID identifies the ingest run that produced the batch.
	RunID string

	// Sequence is the 1-indexed flush number within the run.
	Sequence int

	// Source is the input location the records were read from.
	Source string

	Accepted []NormalizedRecord
	Rejected []RejectionRecord
}

// Size returns the number of records in the batch.
func (b Batch) Size() int {
	return len(b.Accepted) + len(b.Rejected)
}
