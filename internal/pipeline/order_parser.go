package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Extraction patterns for transport order documents. Each rule is
// independent: a pattern that does not match simply leaves its field at
// the default. Only the order number is mandatory.
var (
	reOrderNumber = regexp.MustCompile(`TRN-(\d{4}\s?\d{2})`)
	reOrderDate   = regexp.MustCompile(`Datum:\s*(\d{2}\.\d{2}\.\d{4})`)
	reVehicle     = regexp.MustCompile(`LKW-Kennzeichen:\s*([A-Z\s\-]+\d+)`)
	reKilometers  = regexp.MustCompile(`//(\d+)\s*LEERKM\s*//(\d+)\s*LAST\s*KM`)
	rePercent     = regexp.MustCompile(`//\s*(\d+)%`)
	rePrices      = regexp.MustCompile(`(?s)Frachtpreis:.*?Maut:.*?(\d+[,.]\d+)\s*EUR\s+(\d+[,.]\d+)\s*EUR`)

	reLoadingStart   = regexp.MustCompile(`Ladestellen[^:]*:`)
	reUnloadingStart = regexp.MustCompile(`Empfänger[^:]*:`)
	reInstructions   = regexp.MustCompile(`LADEINSTRUKTIONEN:`)

	reAddressLine  = regexp.MustCompile(`[A-Z].*D\s*\d{5}`)
	reAddressParts = regexp.MustCompile(`([A-ZÄÖÜ][\wÄÖÜäöüß\s\-&.]+?),\s*([^,]+),\s*D\s*(\d{5})`)
	reTrailingCity = regexp.MustCompile(`^\s*([A-Z][A-ZÄÖÜ\-]*)`)
	reLeerIn       = regexp.MustCompile(`LEER IN\s+([A-ZÄÖÜ\-]+)`)
)

// orderRule is one independent text → field extraction. Rules never
// fail; absence of a match leaves the field empty.
type orderRule struct {
	name  string
	re    *regexp.Regexp
	apply func(o *TransportOrder, m []string)
}

var orderRules = []orderRule{
	{"date", reOrderDate, func(o *TransportOrder, m []string) {
		o.Date = m[1]
	}},
	{"vehicle", reVehicle, func(o *TransportOrder, m []string) {
		o.Vehicle = strings.TrimSpace(m[1])
	}},
	{"kilometers", reKilometers, func(o *TransportOrder, m []string) {
		o.EmptyKM, _ = strconv.Atoi(m[1])
		o.LoadedKM, _ = strconv.Atoi(m[2])
	}},
	{"payment_percent", rePercent, func(o *TransportOrder, m []string) {
		o.PaymentPercent, _ = strconv.Atoi(m[1])
	}},
	{"prices", rePrices, func(o *TransportOrder, m []string) {
		o.PlannedFreight = amountOrZero(m[1])
		o.PlannedMaut = amountOrZero(m[2])
	}},
}

// Administrative boilerplate that disqualifies an otherwise
// address-shaped line.
var addressExclusions = []string{"Buchungsnr", "zeiten"}

// ParseTransportOrder extracts a TransportOrder from one document's
// text. Returns ErrEmptyText or ErrMissingOrderNumber (wrapped in a
// ParseError) when the document cannot yield a usable record; every
// other field tolerates absence.
func ParseTransportOrder(docID, text string) (*TransportOrder, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Document: docID, Err: ErrEmptyText}
	}

	draft := TransportOrder{Document: docID}

	m := reOrderNumber.FindStringSubmatch(text)
	if m == nil {
		return nil, &ParseError{Document: docID, Err: ErrMissingOrderNumber}
	}
	draft.OrderNumber = strings.ReplaceAll(m[1], " ", "")

	for _, rule := range orderRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			rule.apply(&draft, m)
		}
	}

	draft.LoadingPoints = scanLoadingSection(text)
	draft.UnloadingPoints = scanUnloadingSection(text)
	applyAddressFallbacks(&draft, text)

	return NewTransportOrder(draft), nil
}

// sectionBetween cuts the text between a section label and the earliest
// of the terminators (or end of text). Go's regexp has no lookahead, so
// the section end is located by plain substring search.
func sectionBetween(text string, start *regexp.Regexp, terminators ...string) (string, bool) {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	end := len(rest)
	for _, t := range terminators {
		if i := strings.Index(rest, t); i >= 0 && i < end {
			end = i
		}
	}
	return rest[:end], true
}

// scanLoadingSection walks the Ladestellen block line by line. The block
// ends at the first blank line; each qualifying line contributes one
// normalized address string.
func scanLoadingSection(text string) []string {
	section, ok := sectionBetween(text, reLoadingStart, "(Die vorgegebenen", "Ladung:")
	if !ok {
		return nil
	}
	var points []string
	for _, line := range strings.Split(strings.TrimSpace(section), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if addr, ok := extractAddress(line); ok {
			points = append(points, addr)
		}
	}
	return points
}

// scanUnloadingSection walks the Empfänger block. Unlike the loading
// block, blank lines are skipped rather than terminating the scan.
func scanUnloadingSection(text string) []string {
	section, ok := sectionBetween(text, reUnloadingStart, "Frachtpreis", "Zahlungsziel")
	if !ok {
		return nil
	}
	var points []string
	for _, line := range strings.Split(strings.TrimSpace(section), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if addr, ok := extractAddress(line); ok {
			points = append(points, addr)
		}
	}
	return points
}

// extractAddress pulls "Company, Street, D PLZ CITY" out of one line.
// Lines without the postal marker, without the comma-separated shape, or
// carrying administrative boilerplate yield nothing.
func extractAddress(line string) (string, bool) {
	if !reAddressLine.MatchString(line) {
		return "", false
	}
	m := reAddressParts.FindStringSubmatchIndex(line)
	if m == nil {
		return "", false
	}
	company := strings.TrimSpace(line[m[2]:m[3]])
	street := strings.TrimSpace(line[m[4]:m[5]])
	plz := line[m[6]:m[7]]

	for _, token := range addressExclusions {
		if strings.Contains(company, token) {
			return "", false
		}
	}

	// City follows the postal code, up to the next non-uppercase token.
	city := ""
	if cm := reTrailingCity.FindStringSubmatch(line[m[1]:]); cm != nil {
		city = cm[1]
	}

	return strings.TrimSpace(company + ", " + street + ", D " + plz + " " + city), true
}

// applyAddressFallbacks fills the loading list from weaker signals when
// the primary section yielded nothing. Primary results are never
// overwritten.
func applyAddressFallbacks(o *TransportOrder, text string) {
	if len(o.LoadingPoints) == 0 {
		if m := reLeerIn.FindStringSubmatch(text); m != nil {
			o.LoadingPoints = []string{m[1]}
			return
		}
	}
	if len(o.LoadingPoints) == 0 || len(o.UnloadingPoints) == 0 {
		instr, ok := sectionBetween(text, reInstructions, "A.")
		if !ok {
			return
		}
		if m := reLeerIn.FindStringSubmatch(instr); m != nil && len(o.LoadingPoints) == 0 {
			o.LoadingPoints = []string{m[1]}
		}
	}
}
