package pipeline

// TransportOrder is one planned haulage job extracted from an order
// document. The reconciliation (Gutschrift*) fields start at their zero
// values and are filled exactly once by MatchOrders; everything else is
// fixed at construction.
type TransportOrder struct {
	OrderNumber string
	Date        string // DD.MM.YYYY as printed in the document
	Vehicle     string
	Tour        string // free-text tour label, route fallback only

	LoadingPoints   []string
	UnloadingPoints []string

	EmptyKM  int
	LoadedKM int
	TotalKM  int // derived: EmptyKM + LoadedKM
	GPSKM    int // derived: TotalKM unless the document supplies one

	PlannedFreight float64
	PlannedMaut    float64
	PlannedTotal   float64 // derived: PlannedFreight + PlannedMaut

	// Filled by matching against a credit note line item.
	GutschriftAmount  float64
	GutschriftFreight float64
	GutschriftMaut    float64
	GutschriftNumber  string
	GutschriftDate    string

	PaymentPercent int // 1..100, 100 when the document names none

	Document string // source document id, kept for failure reports
}

// NewTransportOrder derives the dependent fields from the extracted ones.
// Parsers must go through here so that the distance and price invariants
// hold for every order entering the batch.
func NewTransportOrder(o TransportOrder) *TransportOrder {
	o.TotalKM = o.EmptyKM + o.LoadedKM
	o.PlannedTotal = o.PlannedFreight + o.PlannedMaut
	if o.GPSKM == 0 {
		o.GPSKM = o.TotalKM
	}
	if o.PaymentPercent <= 0 || o.PaymentPercent > 100 {
		o.PaymentPercent = 100
	}
	return &o
}

// Matched reports whether a credit note line item was found for this
// order. The note number doubles as the matched indicator; there is no
// separate flag field.
func (o *TransportOrder) Matched() bool {
	return o.GutschriftNumber != ""
}

// CreditNote is one Gutschrift document: header totals plus the detail
// line items crediting individual transport orders.
type CreditNote struct {
	Number     string
	Date       string
	PeriodFrom string
	PeriodTo   string

	TotalFreight float64
	TotalMaut    float64
	GrossAmount  float64
	OrderCount   int

	Items []LineItem

	Document string
}

// LineItem is one order's entry inside a credit note's detail section.
// OrderNumber is a plain reference; it may not correspond to any order
// loaded in the batch.
type LineItem struct {
	OrderNumber string
	Date        string
	Vehicle     string
	Freight     float64
	Maut        float64
	Total       float64
}

// Document is one input at the pipeline boundary: an identifier (usually
// the uploaded filename) and the full extracted text, page boundaries
// preserved as newlines.
type Document struct {
	ID   string
	Text string
}
