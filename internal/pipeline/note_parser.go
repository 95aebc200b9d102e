package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Header patterns for credit note (Gutschrift) documents. As with the
// order rules, each is independent and tolerant of absence; only the
// note number is mandatory.
var (
	reNoteNumber  = regexp.MustCompile(`Nr\.:\s*(\d+)`)
	reNoteDate    = regexp.MustCompile(`vom:\s*(\d{2}\.\d{2}\.\d{4})`)
	reNotePeriod  = regexp.MustCompile(`Leistungszeitraum:\s*(\d{2}\.\d{2}\.\d{4})\s*-\s*(\d{2}\.\d{2}\.\d{4})`)
	reNoteFreight = regexp.MustCompile(`Fracht\s+ST\s+[\d,.]+\s+([\d,.]+)`)
	reNoteMaut    = regexp.MustCompile(`(?s)Mautkosten.*?ST\s+[\d,.]+\s+([\d,.]+)`)
	reNoteGross   = regexp.MustCompile(`Gesamtbetrag:\s*([\d,.]+)\s*EUR`)
	reNoteCount   = regexp.MustCompile(`(?s)Anzahl.*?Transportaufträge.*?:\s*(\d+)`)

	// One detail block per credited order: order number, date, vehicle,
	// freight, toll and the block total, in that sequence. A block that
	// does not match in full is skipped entirely.
	reNoteDetail = regexp.MustCompile(`(?s)Transp\.A\.\s+.*?\n.*?\n(\d{6})\s+(\d{2}\.\d{2}\.\d{4}).*?([A-Z\s\-]+\d+).*?Fracht.*?D\s+[\d,]+\s+([\d,.]+)\s+EUR.*?Mautkosten.*?D\s+[\d,]+\s+([\d,.]+)\s+EUR.*?Summe\s+([\d,.]+)\s+EUR`)
)

type noteRule struct {
	name  string
	re    *regexp.Regexp
	apply func(n *CreditNote, m []string)
}

var noteRules = []noteRule{
	{"date", reNoteDate, func(n *CreditNote, m []string) {
		n.Date = m[1]
	}},
	{"period", reNotePeriod, func(n *CreditNote, m []string) {
		n.PeriodFrom = m[1]
		n.PeriodTo = m[2]
	}},
	{"total_freight", reNoteFreight, func(n *CreditNote, m []string) {
		n.TotalFreight = amountOrZero(m[1])
	}},
	{"total_maut", reNoteMaut, func(n *CreditNote, m []string) {
		n.TotalMaut = amountOrZero(m[1])
	}},
	{"gross_amount", reNoteGross, func(n *CreditNote, m []string) {
		n.GrossAmount = amountOrZero(m[1])
	}},
	{"order_count", reNoteCount, func(n *CreditNote, m []string) {
		n.OrderCount, _ = strconv.Atoi(m[1])
	}},
}

// ParseCreditNote extracts a CreditNote with its line items from one
// document's text.
func ParseCreditNote(docID, text string) (*CreditNote, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Document: docID, Err: ErrEmptyText}
	}

	note := CreditNote{Document: docID}

	m := reNoteNumber.FindStringSubmatch(text)
	if m == nil {
		return nil, &ParseError{Document: docID, Err: ErrMissingNoteNumber}
	}
	note.Number = m[1]

	for _, rule := range noteRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			rule.apply(&note, m)
		}
	}

	for _, d := range reNoteDetail.FindAllStringSubmatch(text, -1) {
		note.Items = append(note.Items, LineItem{
			OrderNumber: d[1],
			Date:        d[2],
			Vehicle:     strings.TrimSpace(d[3]),
			Freight:     amountOrZero(d[4]),
			Maut:        amountOrZero(d[5]),
			Total:       amountOrZero(d[6]),
		})
	}

	return &note, nil
}
