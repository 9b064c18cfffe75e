package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ortkod/internal"
)

func openWorkbook(t *testing.T, blob []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWorkbookLayout(t *testing.T) {
	longOrt := strings.Repeat("L", 40)
	groups := NewGroups([]string{"O1", "EMPTY", longOrt})
	groups.Records["O1"] = []internal.OutputRecord{
		{Etiket: "E1", Kod: "RIT.1", Adet: 2, Ort: "O1"},
		{Etiket: "E2", Kod: "X.9", Adet: 3, Ort: "O1"},
	}
	groups.Records[longOrt] = []internal.OutputRecord{{Etiket: "E3", Kod: "rit.1", Adet: 4, Ort: longOrt}}

	invalid := []internal.InvalidRowReport{{RowNumber: 5, MissingFields: "Hersteller", Ort: "O1", BestellNr: "X"}}
	check := internal.CodeCheckResult{
		Success:         true,
		MissingCodes:    []string{"RIT.1"},
		UnapprovedCodes: []string{"X.9"},
		MissingCount:    1,
		UnapprovedCount: 1,
	}

	blob, err := WorkbookBytes(groups, invalid, check)
	require.NoError(t, err)
	f := openWorkbook(t, blob)

	assert.Equal(t, []string{SheetAllData, "O1", strings.Repeat("L", 28) + "...", SheetInvalidRows, SheetCodeStatus}, f.GetSheetList())

	all, err := f.GetRows(SheetAllData)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Etiket", "Kod", "Adet", "Ort"},
		{"E1", "RIT.1", "2", "O1"},
		{"E2", "X.9", "3", "O1"},
		{"E3", "rit.1", "4", longOrt},
	}, all)

	inv, err := f.GetRows(SheetInvalidRows)
	require.NoError(t, err)
	assert.Equal(t, []string{"Row No", "Missing Fields", "Anlage", "Funktion", "Ort", "BMK", "Hersteller", "Bestell_Nr_", "Teilemenge"}, inv[0])
	assert.Equal(t, "5", inv[1][0])
	assert.Equal(t, "Hersteller", inv[1][1])

	status, err := f.GetRows(SheetCodeStatus)
	require.NoError(t, err)
	require.Len(t, status, 5)
	assert.Equal(t, []string{"RIT.1", StatusMissing, "6", "Not found in reference list"}, status[1])
	assert.Equal(t, []string{"X.9", StatusUnapproved, "3", "Present in reference list but not approved"}, status[2])
	assert.Empty(t, status[3])
	assert.Equal(t, "SUMMARY", status[4][0])
	assert.Equal(t, "Missing: 1 (1 distinct codes)", status[4][1])
	assert.Equal(t, "Unapproved: 1 (1 distinct codes)", status[4][3])
}

func TestWorkbookOmitsEmptySections(t *testing.T) {
	groups := NewGroups([]string{"O1"})
	blob, err := WorkbookBytes(groups, nil, internal.CodeCheckResult{Success: false, Error: "offline"})
	require.NoError(t, err)

	f := openWorkbook(t, blob)
	assert.Equal(t, []string{SheetAllData}, f.GetSheetList())
}

func TestWorkbookSheetNamesAreSanitizedAndUnique(t *testing.T) {
	groups := NewGroups([]string{"A/B", "A?B", "all data"})
	groups.Records["A/B"] = []internal.OutputRecord{{Kod: "1", Adet: 1, Ort: "A/B"}}
	groups.Records["A?B"] = []internal.OutputRecord{{Kod: "2", Adet: 1, Ort: "A?B"}}
	groups.Records["all data"] = []internal.OutputRecord{{Kod: "3", Adet: 1, Ort: "all data"}}

	blob, err := WorkbookBytes(groups, nil, internal.CodeCheckResult{})
	require.NoError(t, err)

	f := openWorkbook(t, blob)
	assert.Equal(t, []string{SheetAllData, "A_B", "A_B (2)", "all data (2)"}, f.GetSheetList())
}

func TestOrtSheetName(t *testing.T) {
	assert.Equal(t, "short", OrtSheetName("short"))
	assert.Equal(t, strings.Repeat("x", 31), OrtSheetName(strings.Repeat("x", 31)))
	assert.Equal(t, strings.Repeat("x", 28)+"...", OrtSheetName(strings.Repeat("x", 32)))
}
