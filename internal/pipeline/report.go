package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Flag marks an anomaly on a report row. Flags are carried next to the
// cells, not inside them; the spreadsheet writer turns them into cell
// highlighting and the core does nothing else with them.
type Flag string

const (
	FlagUnmatched           Flag = "unmatched"
	FlagLargeKMDeviation    Flag = "large_km_deviation"
	FlagPartialPayment      Flag = "partial_payment"
	FlagNegativeVariance    Flag = "significant_negative_variance"
)

// Row is one output row: cell values keyed by column name plus the
// anomaly flags raised for it.
type Row struct {
	Cells map[string]any
	Flags []Flag
}

func (r Row) Has(f Flag) bool {
	for _, x := range r.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Column orders for the output sheets. The writer iterates these; the
// Cells maps are unordered.
var (
	MainColumns = []string{
		"date", "order_number", "route", "loading_points", "unloading_points",
		"planned_km", "gps_km", "planned_maut", "reconciled_maut",
		"planned_freight", "planned_total", "reconciled_amount",
		"km_variance", "monetary_variance", "gs_reference", "vehicle",
		"payment_percent",
	}
	NoteColumns = []string{
		"number", "date", "period", "total_freight", "total_maut",
		"gross_amount", "order_count", "detail_count",
	}
	ItemColumns = []string{
		"note_number", "order_number", "date", "vehicle", "freight", "maut", "total",
	}
	UnmatchedColumns = []string{
		"order_number", "date", "vehicle", "route", "planned_total",
	}
	StatsColumns = []string{"metric", "value"}
)

// Report is the full set of row sequences for one audit run, one slice
// per sheet.
type Report struct {
	MainRows      []Row
	NoteRows      []Row
	ItemRows      []Row
	UnmatchedRows []Row
	StatsRows     []Row
}

// ReportBuilder projects matched orders and credit notes into report
// rows. The thresholds are configuration; zero values fall back to the
// defaults used by the dispatch office.
type ReportBuilder struct {
	Normalizer *Normalizer

	// KMDeviationRatio is the relative GPS-vs-planned distance gap
	// above which a row is flagged, default 0.10.
	KMDeviationRatio float64
	// NegativeVarianceLimit is the monetary variance below which a row
	// is flagged, default -50.
	NegativeVarianceLimit float64
}

func NewReportBuilder(n *Normalizer) *ReportBuilder {
	return &ReportBuilder{
		Normalizer:            n,
		KMDeviationRatio:      0.10,
		NegativeVarianceLimit: -50,
	}
}

const dateLayout = "02.01.2006"

// Build assembles the report. Orders are sorted by date ascending with
// a stable sort; rows whose date does not parse sort after all parsable
// ones, keeping their load order among themselves. The aggregate row is
// appended only when at least one order exists.
func (b *ReportBuilder) Build(orders []*TransportOrder, notes []*CreditNote) *Report {
	sorted := make([]*TransportOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, oki := parseDate(sorted[i].Date)
		tj, okj := parseDate(sorted[j].Date)
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		return ti.Before(tj)
	})

	r := &Report{}
	for _, o := range sorted {
		r.MainRows = append(r.MainRows, b.mainRow(o))
		if !o.Matched() {
			r.UnmatchedRows = append(r.UnmatchedRows, b.unmatchedRow(o))
		}
	}
	if len(sorted) > 0 {
		r.MainRows = append(r.MainRows, b.aggregateRow(sorted))
	}
	for _, n := range notes {
		r.NoteRows = append(r.NoteRows, noteRow(n))
		for _, it := range n.Items {
			r.ItemRows = append(r.ItemRows, itemRow(n, it))
		}
	}
	r.StatsRows = b.statsRows(sorted, notes)
	return r
}

func (b *ReportBuilder) mainRow(o *TransportOrder) Row {
	kmVariance := o.GPSKM - o.TotalKM
	var monetaryVariance float64
	if o.Matched() {
		monetaryVariance = o.GutschriftAmount - o.PlannedTotal
	}

	row := Row{Cells: map[string]any{
		"date":              o.Date,
		"order_number":      o.OrderNumber,
		"route":             b.route(o),
		"loading_points":    strings.Join(o.LoadingPoints, " | "),
		"unloading_points":  strings.Join(o.UnloadingPoints, " | "),
		"planned_km":        o.TotalKM,
		"gps_km":            o.GPSKM,
		"planned_maut":      euro(o.PlannedMaut),
		"reconciled_maut":   "",
		"planned_freight":   euro(o.PlannedFreight),
		"planned_total":     euro(o.PlannedTotal),
		"reconciled_amount": "",
		"km_variance":       kmVariance,
		"monetary_variance": euro(monetaryVariance),
		"gs_reference":      gsReference(o),
		"vehicle":           o.Vehicle,
		"payment_percent":   o.PaymentPercent,
	}}
	if o.Matched() {
		row.Cells["reconciled_maut"] = euro(o.GutschriftMaut)
		row.Cells["reconciled_amount"] = euro(o.GutschriftAmount)
	} else {
		row.Flags = append(row.Flags, FlagUnmatched)
	}
	if o.TotalKM > 0 && absInt(kmVariance) > b.KMDeviationRatio*float64(o.TotalKM) {
		row.Flags = append(row.Flags, FlagLargeKMDeviation)
	}
	if o.PaymentPercent < 100 {
		row.Flags = append(row.Flags, FlagPartialPayment)
	}
	if o.Matched() && monetaryVariance < b.NegativeVarianceLimit {
		row.Flags = append(row.Flags, FlagNegativeVariance)
	}
	return row
}

func (b *ReportBuilder) aggregateRow(orders []*TransportOrder) Row {
	var plannedKM, gpsKM, kmVar int
	var maut, reconMaut, freight, planned, recon, monVar float64
	for _, o := range orders {
		plannedKM += o.TotalKM
		gpsKM += o.GPSKM
		maut += o.PlannedMaut
		freight += o.PlannedFreight
		planned += o.PlannedTotal
		kmVar += o.GPSKM - o.TotalKM
		if o.Matched() {
			reconMaut += o.GutschriftMaut
			recon += o.GutschriftAmount
			monVar += o.GutschriftAmount - o.PlannedTotal
		}
	}
	return Row{Cells: map[string]any{
		"date":              "GESAMT",
		"order_number":      "",
		"route":             "",
		"loading_points":    "",
		"unloading_points":  "",
		"planned_km":        plannedKM,
		"gps_km":            gpsKM,
		"planned_maut":      euro(maut),
		"reconciled_maut":   euro(reconMaut),
		"planned_freight":   euro(freight),
		"planned_total":     euro(planned),
		"reconciled_amount": euro(recon),
		"km_variance":       kmVar,
		"monetary_variance": euro(monVar),
		"gs_reference":      "",
		"vehicle":           "",
		"payment_percent":   "",
	}}
}

func (b *ReportBuilder) unmatchedRow(o *TransportOrder) Row {
	return Row{
		Cells: map[string]any{
			"order_number":  o.OrderNumber,
			"date":          o.Date,
			"vehicle":       o.Vehicle,
			"route":         b.route(o),
			"planned_total": euro(o.PlannedTotal),
		},
		Flags: []Flag{FlagUnmatched},
	}
}

func noteRow(n *CreditNote) Row {
	period := n.PeriodFrom
	if n.PeriodTo != "" {
		period += " - " + n.PeriodTo
	}
	return Row{Cells: map[string]any{
		"number":        n.Number,
		"date":          n.Date,
		"period":        period,
		"total_freight": euro(n.TotalFreight),
		"total_maut":    euro(n.TotalMaut),
		"gross_amount":  euro(n.GrossAmount),
		"order_count":   n.OrderCount,
		"detail_count":  len(n.Items),
	}}
}

func itemRow(n *CreditNote, it LineItem) Row {
	return Row{Cells: map[string]any{
		"note_number":  n.Number,
		"order_number": it.OrderNumber,
		"date":         it.Date,
		"vehicle":      it.Vehicle,
		"freight":      euro(it.Freight),
		"maut":         euro(it.Maut),
		"total":        euro(it.Total),
	}}
}

// statsRows summarizes the batch for the Statistik sheet. The Differenz
// metric sums only matched orders, so open unmatched orders never show
// up as a deficit.
func (b *ReportBuilder) statsRows(orders []*TransportOrder, notes []*CreditNote) []Row {
	matched := 0
	var plannedKM, gpsKM int
	var freight, maut, planned, recon, diff float64
	for _, o := range orders {
		plannedKM += o.TotalKM
		gpsKM += o.GPSKM
		freight += o.PlannedFreight
		maut += o.PlannedMaut
		planned += o.PlannedTotal
		if o.Matched() {
			matched++
			recon += o.GutschriftAmount
			diff += o.GutschriftAmount - o.PlannedTotal
		}
	}
	quote := 0.0
	if len(orders) > 0 {
		quote = float64(matched) / float64(len(orders)) * 100
	}
	stat := func(metric string, value any) Row {
		return Row{Cells: map[string]any{"metric": metric, "value": value}}
	}
	return []Row{
		stat("Transportaufträge gesamt", len(orders)),
		stat("Gutschriften gesamt", len(notes)),
		stat("Zugeordnet", matched),
		stat("Nicht zugeordnet", len(orders)-matched),
		stat("Zuordnungsquote", fmt.Sprintf("%.1f%%", quote)),
		stat("Kilometer gesamt (Plan)", plannedKM),
		stat("Kilometer gesamt (GPS)", gpsKM),
		stat("Fracht gesamt (Plan)", euro(freight)),
		stat("Maut gesamt (Plan)", euro(maut)),
		stat("Geplante Summe", euro(planned)),
		stat("Gutgeschriebene Summe", euro(recon)),
		stat("Differenz", euro(diff)),
	}
}

func (b *ReportBuilder) route(o *TransportOrder) string {
	return b.Normalizer.FormatRoute(o.LoadingPoints, o.UnloadingPoints, o.Tour)
}

// gsReference renders "number/date" for a matched order. The empty
// string on unmatched rows doubles as the unmatched indicator in the
// sheet.
func gsReference(o *TransportOrder) string {
	if !o.Matched() {
		return ""
	}
	if o.GutschriftDate == "" {
		return o.GutschriftNumber
	}
	return o.GutschriftNumber + "/" + o.GutschriftDate
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

func euro(v float64) string {
	return fmt.Sprintf("%.2f €", v)
}

func absInt(v int) float64 {
	if v < 0 {
		v = -v
	}
	return float64(v)
}
