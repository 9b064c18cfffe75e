package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ortkod/internal"
)

func bomRows() []internal.InputRow {
	return []internal.InputRow{
		{RowNumber: 2, Anlage: "A", Funktion: "F", Ort: "O1", BMK: "1", Hersteller: "Rittal", BestellNr: "R-1", Teilemenge: "2"},
		{RowNumber: 3, Anlage: "A", Funktion: "F", Ort: "O2", BMK: "2", Hersteller: "Siemens", BestellNr: "S-1", Teilemenge: "1"},
		{RowNumber: 4, Anlage: "A", Funktion: "F", Ort: "O3", BMK: "3", Hersteller: "Lapp", BestellNr: "L-1", Teilemenge: "1"},
		{RowNumber: 5, Anlage: "A", Funktion: "F", Ort: "", BMK: "4", Hersteller: "Lapp", BestellNr: "L-2", Teilemenge: "1"},
		{RowNumber: 6, Anlage: "A", Funktion: "F", Ort: "O1", BMK: "5", Hersteller: "", BestellNr: "X", Teilemenge: "1"},
		{RowNumber: 7, Anlage: "A", Funktion: "F", Ort: "O1", BMK: "6", Hersteller: "Rittal", BestellNr: "R-2", Teilemenge: "5"},
		{RowNumber: 8, Anlage: "A", Funktion: "F", Ort: "O2", BMK: "7", Hersteller: "Siemens", BestellNr: "DROP", Teilemenge: "1"},
	}
}

func TestAggregateRoutesBySelectedOrt(t *testing.T) {
	proc := processor(nil, nil, nil, []string{"drop"})
	groups, invalid := Aggregate(bomRows(), []string{"O1", "O2", "O9", "O1"}, proc)

	assert.Equal(t, []string{"O1", "O2", "O9"}, groups.Orts)
	require.Len(t, groups.Records["O1"], 2)
	assert.Equal(t, "RIT.R-1", groups.Records["O1"][0].Kod)
	assert.Equal(t, "RIT.R-2", groups.Records["O1"][1].Kod)
	require.Len(t, groups.Records["O2"], 1)
	assert.Empty(t, groups.Records["O9"])
	assert.NotContains(t, groups.Records, "O3")

	require.Len(t, invalid, 1)
	assert.Equal(t, 6, invalid[0].RowNumber)

	assert.Equal(t, 3, groups.Len())
	assert.Equal(t, []string{"RIT.R-1", "RIT.R-2", "SIE.S-1"}, groups.Codes())
}

func TestAggregateNothingSelected(t *testing.T) {
	groups, invalid := Aggregate(bomRows(), nil, processor(nil, nil, nil, nil))
	assert.Empty(t, groups.All())
	assert.Empty(t, invalid)
}
