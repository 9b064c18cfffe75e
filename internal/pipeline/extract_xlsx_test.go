package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

var bomHeader = []any{"Anlage", "Funktion", " Ort ", "BMK", "Hersteller", "Bestell_Nr_", "Teilemenge", "Bemerkung"}

func TestReadRows(t *testing.T) {
	blob := mkXLSX([][]any{
		bomHeader,
		{"A1", "F1", "O1", "B1", "Rittal GmbH", " VX8806.030 ", 2, "x"},
		{},
		{"A2", "F2", "O2", "B2", "", "3RT2015"},
	})

	rows, err := ReadRows(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("len=%d", len(rows))
	}
	want := internal.InputRow{RowNumber: 2, Anlage: "A1", Funktion: "F1", Ort: "O1", BMK: "B1", Hersteller: "Rittal GmbH", BestellNr: "VX8806.030", Teilemenge: "2"}
	if rows[0] != want {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if rows[2].RowNumber != 4 || rows[2].Teilemenge != "" || rows[2].BestellNr != "3RT2015" {
		t.Fatalf("unexpected short row: %+v", rows[2])
	}
}

func TestReadRowsMissingColumns(t *testing.T) {
	blob := mkXLSX([][]any{{"Anlage", "Ort", "Hersteller"}})

	_, err := ReadRows(blob)
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if got := missing.Error(); got != "required columns not found: Funktion, BMK, Bestell_Nr_, Teilemenge" {
		t.Fatalf("got %q", got)
	}
}

func TestReadOrtValues(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Ort"},
		{"O2"},
		{" O1 "},
		{""},
		{"O2"},
	})

	orts, err := ReadOrtValues(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(orts) != 2 || orts[0] != "O1" || orts[1] != "O2" {
		t.Fatalf("unexpected orts: %v", orts)
	}
}

func TestReadRecords(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Orijinal", "Yeni"},
		{"OLD-1", "NEW-1"},
		{},
		{"OLD-2"},
	})

	records, err := ReadRecords(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("len=%d", len(records))
	}
	if records[0]["Yeni"] != "NEW-1" || records[1]["Orijinal"] != "OLD-2" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestReadRowsRejectsGarbage(t *testing.T) {
	_, err := ReadRows([]byte("not a workbook"))
	if !errors.Is(err, ErrInvalidWorkbook) {
		t.Fatalf("err=%v, want ErrInvalidWorkbook", err)
	}
}
