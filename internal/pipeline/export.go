package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
	"ortkod/internal/util"
)

const (
	SheetAllData     = "All Data"
	SheetInvalidRows = "Invalid Rows"
	SheetCodeStatus  = "Code Status"

	StatusMissing    = "Missing"
	StatusUnapproved = "Unapproved"
)

type column struct {
	header string
	width  float64
}

var recordColumns = []column{
	{"Etiket", 30},
	{"Kod", 25},
	{"Adet", 10},
	{"Ort", 10},
}

var invalidColumns = []column{
	{"Row No", 10},
	{"Missing Fields", 20},
	{internal.ColAnlage, 15},
	{internal.ColFunktion, 15},
	{internal.ColOrt, 15},
	{internal.ColBMK, 15},
	{internal.ColHersteller, 20},
	{internal.ColBestellNr, 20},
	{internal.ColTeilemenge, 15},
}

var codeStatusColumns = []column{
	{"Kod", 30},
	{"Status", 25},
	{"Total Quantity", 15},
	{"Description", 40},
}

// ComposeWorkbook lays out the output: all records, one sheet per non-empty Ort,
// then invalid rows and code status when there is anything to report.
func ComposeWorkbook(groups Groups, invalid []internal.InvalidRowReport, check internal.CodeCheckResult) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetAllData); err != nil {
		_ = f.Close()
		return nil, errors.WithStack(err)
	}
	w := &sheetWriter{f: f, used: map[string]bool{strings.ToLower(SheetAllData): true}}

	w.header(SheetAllData, recordColumns)
	mainRow := 2
	for _, ort := range groups.Orts {
		records := groups.Records[ort]
		if len(records) == 0 {
			continue
		}
		name := w.newSheet(OrtSheetName(ort))
		w.header(name, recordColumns)
		for i, r := range records {
			values := []any{r.Etiket, r.Kod, r.Adet, r.Ort}
			w.row(SheetAllData, mainRow, values)
			w.row(name, i+2, values)
			mainRow++
		}
	}

	if len(invalid) > 0 {
		name := w.newSheet(SheetInvalidRows)
		w.header(name, invalidColumns)
		for i, r := range invalid {
			w.row(name, i+2, []any{r.RowNumber, r.MissingFields, r.Anlage, r.Funktion, r.Ort, r.BMK, r.Hersteller, r.BestellNr, r.Teilemenge})
		}
	}

	if len(check.MissingCodes) > 0 || len(check.UnapprovedCodes) > 0 {
		name := w.newSheet(SheetCodeStatus)
		w.header(name, codeStatusColumns)
		totals := quantityByCode(groups)
		r := 2
		for _, code := range check.MissingCodes {
			w.row(name, r, []any{code, StatusMissing, totals[util.NormalizeCode(code)], "Not found in reference list"})
			r++
		}
		for _, code := range check.UnapprovedCodes {
			w.row(name, r, []any{code, StatusUnapproved, totals[util.NormalizeCode(code)], "Present in reference list but not approved"})
			r++
		}
		r++
		w.row(name, r, []any{
			"SUMMARY",
			fmt.Sprintf("Missing: %d (%d distinct codes)", check.MissingCount, len(check.MissingCodes)),
			nil,
			fmt.Sprintf("Unapproved: %d (%d distinct codes)", check.UnapprovedCount, len(check.UnapprovedCodes)),
		})
	}

	if w.err != nil {
		_ = f.Close()
		return nil, w.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WorkbookBytes composes the workbook and serializes it as xlsx.
func WorkbookBytes(groups Groups, invalid []internal.InvalidRowReport, check internal.CodeCheckResult) ([]byte, error) {
	f, err := ComposeWorkbook(groups, invalid, check)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, errors.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// OrtSheetName shortens names past the 31 character sheet limit to 28 plus "...".
func OrtSheetName(ort string) string {
	runes := []rune(ort)
	if len(runes) > 31 {
		return string(runes[:28]) + "..."
	}
	return ort
}

func quantityByCode(groups Groups) map[string]int {
	totals := map[string]int{}
	for _, r := range groups.All() {
		totals[util.NormalizeCode(r.Kod)] += r.Adet
	}
	return totals
}

var sheetNameReplacer = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

type sheetWriter struct {
	f    *excelize.File
	used map[string]bool
	err  error
}

// newSheet adds a sheet with a valid, unique name and returns the name used.
func (w *sheetWriter) newSheet(name string) string {
	base := strings.Trim(sheetNameReplacer.Replace(name), "'")
	if base == "" {
		base = "Sheet"
	}
	unique := base
	for n := 2; w.used[strings.ToLower(unique)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		runes := []rune(base)
		if len(runes)+len(suffix) > 31 {
			runes = runes[:31-len(suffix)]
		}
		unique = string(runes) + suffix
	}
	w.used[strings.ToLower(unique)] = true

	if w.err == nil {
		if _, err := w.f.NewSheet(unique); err != nil {
			w.err = errors.Errorf("add sheet %q: %w", unique, err)
		}
	}
	return unique
}

func (w *sheetWriter) header(sheet string, cols []column) {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = c.header
		if w.err == nil {
			colName, _ := excelize.ColumnNumberToName(i + 1)
			if err := w.f.SetColWidth(sheet, colName, colName, c.width); err != nil {
				w.err = errors.WithStack(err)
			}
		}
	}
	w.row(sheet, 1, values)
}

func (w *sheetWriter) row(sheet string, r int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = errors.WithStack(err)
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = errors.Errorf("write %s!%s: %w", sheet, cell, err)
	}
}
