package pipeline

import (
	"bytes"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
)

var (
	ErrInvalidWorkbook = errors.Base("upload is not a readable xlsx workbook")
	ErrEmptyWorkbook   = errors.Base("workbook has no sheets")
)

// MissingColumnsError lists required header names absent from the first row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "required columns not found: " + strings.Join(e.Columns, ", ")
}

// columnIndex maps trimmed header text to a zero-based column. A repeated header
// resolves to its last occurrence.
type columnIndex map[string]int

func (c columnIndex) cell(cells []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func (c columnIndex) require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := c[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

func readFirstSheet(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.WithStack(ErrEmptyWorkbook)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func headerIndex(rows [][]string) columnIndex {
	idx := columnIndex{}
	if len(rows) == 0 {
		return idx
	}
	for i, h := range rows[0] {
		name := strings.TrimSpace(h)
		if name != "" {
			idx[name] = i
		}
	}
	return idx
}

// ReadRows resolves the header once and returns typed rows of the first sheet.
// RowNumber is the 1-based sheet row, so the first data row is 2.
func ReadRows(content []byte) ([]internal.InputRow, error) {
	rows, err := readFirstSheet(content)
	if err != nil {
		return nil, err
	}
	idx := headerIndex(rows)
	if err := idx.require(internal.RequiredColumns...); err != nil {
		return nil, err
	}

	out := make([]internal.InputRow, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		cells := rows[i]
		out = append(out, internal.InputRow{
			RowNumber:  i + 1,
			Anlage:     idx.cell(cells, internal.ColAnlage),
			Funktion:   idx.cell(cells, internal.ColFunktion),
			Ort:        idx.cell(cells, internal.ColOrt),
			BMK:        idx.cell(cells, internal.ColBMK),
			Hersteller: idx.cell(cells, internal.ColHersteller),
			BestellNr:  idx.cell(cells, internal.ColBestellNr),
			Teilemenge: idx.cell(cells, internal.ColTeilemenge),
		})
	}
	return out, nil
}

// ReadOrtValues returns the sorted distinct non-blank Ort values of the first sheet.
func ReadOrtValues(content []byte) ([]string, error) {
	rows, err := readFirstSheet(content)
	if err != nil {
		return nil, err
	}
	idx := headerIndex(rows)
	if err := idx.require(internal.ColOrt); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := []string{}
	for i := 1; i < len(rows); i++ {
		ort := idx.cell(rows[i], internal.ColOrt)
		if ort == "" {
			continue
		}
		if _, ok := seen[ort]; ok {
			continue
		}
		seen[ort] = struct{}{}
		out = append(out, ort)
	}
	sort.Strings(out)
	return out, nil
}

// ReadRecords returns the first sheet as header-keyed maps, skipping blank rows.
func ReadRecords(content []byte) ([]map[string]string, error) {
	rows, err := readFirstSheet(content)
	if err != nil {
		return nil, err
	}
	idx := headerIndex(rows)

	out := []map[string]string{}
	for i := 1; i < len(rows); i++ {
		record := map[string]string{}
		for name := range idx {
			if v := idx.cell(rows[i], name); v != "" {
				record[name] = v
			}
		}
		if len(record) > 0 {
			out = append(out, record)
		}
	}
	return out, nil
}
