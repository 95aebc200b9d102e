// Package xlsxreport serializes an audit report into the Excel workbook
// the dispatch office reads. Sheet and column names stay German; they
// are part of the delivered document format, not of the code.
package xlsxreport

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/transtar/freight-audit/internal/pipeline"
)

const (
	SheetMain      = "Hauptbericht"
	SheetNotes     = "Gutschriften"
	SheetItems     = "GS_Details"
	SheetStats     = "Statistik"
	SheetUnmatched = "Nicht_zugeordnet"
)

var mainHeaders = map[string]string{
	"date":              "Datum",
	"order_number":      "Transp.-Nr.",
	"route":             "Tour",
	"loading_points":    "Ladestellen",
	"unloading_points":  "Entladestellen",
	"planned_km":        "km lt. Planung",
	"gps_km":            "km lt. GPS",
	"planned_maut":      "Maut lt. Planung",
	"reconciled_maut":   "Maut lt. GS",
	"planned_freight":   "Fracht lt. Planung",
	"planned_total":     "Summe lt. Planung",
	"reconciled_amount": "Summe lt. GS",
	"km_variance":       "Differenz km",
	"monetary_variance": "Differenz EUR",
	"gs_reference":      "GS-Nr.",
	"vehicle":           "LKW",
	"payment_percent":   "Zahlung %",
}

var noteHeaders = map[string]string{
	"number":        "GS-Nr.",
	"date":          "Datum",
	"period":        "Leistungszeitraum",
	"total_freight": "Fracht gesamt",
	"total_maut":    "Maut gesamt",
	"gross_amount":  "Gesamtbetrag",
	"order_count":   "Anzahl Aufträge",
	"detail_count":  "Anzahl Positionen",
}

var itemHeaders = map[string]string{
	"note_number":  "GS-Nr.",
	"order_number": "Transp.-Nr.",
	"date":         "Datum",
	"vehicle":      "LKW",
	"freight":      "Fracht",
	"maut":         "Maut",
	"total":        "Summe",
}

var unmatchedHeaders = map[string]string{
	"order_number":  "Transp.-Nr.",
	"date":          "Datum",
	"vehicle":       "LKW",
	"route":         "Tour",
	"planned_total": "Summe lt. Planung",
}

var statsHeaders = map[string]string{
	"metric": "Kennzahl",
	"value":  "Wert",
}

// Writer renders Report row sequences into a styled workbook.
type Writer struct {
	headerStyle int
	redStyle    int
	yellowStyle int
}

// Write creates the workbook at path. The first sheet replaces the
// default one so the file opens on the main report.
func Write(path string, rep *pipeline.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	w := &Writer{}
	if err := w.makeStyles(f); err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SheetMain); err != nil {
		return fmt.Errorf("xlsxreport: rename sheet: %w", err)
	}
	for _, name := range []string{SheetNotes, SheetItems, SheetStats, SheetUnmatched} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsxreport: create sheet %s: %w", name, err)
		}
	}

	if err := w.writeSheet(f, SheetMain, pipeline.MainColumns, mainHeaders, rep.MainRows, w.mainCellStyle); err != nil {
		return err
	}
	if err := w.writeSheet(f, SheetNotes, pipeline.NoteColumns, noteHeaders, rep.NoteRows, nil); err != nil {
		return err
	}
	if err := w.writeSheet(f, SheetItems, pipeline.ItemColumns, itemHeaders, rep.ItemRows, nil); err != nil {
		return err
	}
	if err := w.writeSheet(f, SheetStats, pipeline.StatsColumns, statsHeaders, rep.StatsRows, nil); err != nil {
		return err
	}
	if err := w.writeSheet(f, SheetUnmatched, pipeline.UnmatchedColumns, unmatchedHeaders, rep.UnmatchedRows, w.unmatchedCellStyle); err != nil {
		return err
	}

	if idx, err := f.GetSheetIndex(SheetMain); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsxreport: save workbook: %w", err)
	}
	return nil
}

func (w *Writer) makeStyles(f *excelize.File) error {
	var err error
	w.headerStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("xlsxreport: header style: %w", err)
	}
	w.redStyle, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsxreport: red style: %w", err)
	}
	w.yellowStyle, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF9E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsxreport: yellow style: %w", err)
	}
	return nil
}

// writeSheet fills one sheet: header row, then one row per Row. style,
// when non-nil, returns the style id for a cell or 0 for none.
func (w *Writer) writeSheet(f *excelize.File, sheet string, columns []string, headers map[string]string, rows []pipeline.Row, style func(pipeline.Row, string) int) error {
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, headers[col]); err != nil {
			return fmt.Errorf("xlsxreport: %s header: %w", sheet, err)
		}
		f.SetCellStyle(sheet, cell, cell, w.headerStyle)
	}

	widths := make([]float64, len(columns))
	for i, col := range columns {
		widths[i] = float64(len(headers[col])) + 4
	}

	for rowIdx, row := range rows {
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowIdx+2)
			value := row.Cells[col]
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("xlsxreport: %s cell %s: %w", sheet, cell, err)
			}
			if style != nil {
				if id := style(row, col); id != 0 {
					f.SetCellStyle(sheet, cell, cell, id)
				}
			}
			if s, ok := value.(string); ok && float64(len(s))+2 > widths[i] {
				widths[i] = float64(len(s)) + 2
			}
		}
	}

	for i := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := widths[i]
		if width > 50 {
			width = 50
		}
		f.SetColWidth(sheet, name, name, width)
	}
	return nil
}

// mainCellStyle maps the row's anomaly flags onto cell highlighting:
// unmatched paints the whole row, the others only the columns the
// dispatcher checks for that anomaly.
func (w *Writer) mainCellStyle(row pipeline.Row, col string) int {
	if row.Has(pipeline.FlagUnmatched) {
		return w.yellowStyle
	}
	switch col {
	case "planned_km", "gps_km", "km_variance":
		if row.Has(pipeline.FlagLargeKMDeviation) {
			return w.redStyle
		}
	case "payment_percent":
		if row.Has(pipeline.FlagPartialPayment) {
			return w.yellowStyle
		}
	case "monetary_variance":
		if row.Has(pipeline.FlagNegativeVariance) {
			return w.redStyle
		}
	}
	return 0
}

func (w *Writer) unmatchedCellStyle(row pipeline.Row, col string) int {
	return w.yellowStyle
}
