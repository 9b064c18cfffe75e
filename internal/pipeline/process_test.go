package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
	"ortkod/internal/refsheet"
)

type fakeOverrides struct {
	rules        []internal.Rule
	manual       []internal.ManualAbbreviation
	replacements []internal.OrderReplacement
	exclusions   []string
	err          error
}

func (f *fakeOverrides) FetchRules(context.Context) ([]internal.Rule, error) {
	return f.rules, f.err
}

func (f *fakeOverrides) FetchManualAbbreviations(context.Context) ([]internal.ManualAbbreviation, error) {
	return f.manual, nil
}

func (f *fakeOverrides) FetchOrderReplacements(context.Context) ([]internal.OrderReplacement, error) {
	return f.replacements, nil
}

func (f *fakeOverrides) FetchExclusions(context.Context) ([]string, error) {
	return f.exclusions, nil
}

type fakeReference struct {
	rows  [][]string
	err   error
	block bool
}

func (f fakeReference) Load(ctx context.Context) (*refsheet.Index, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return refsheet.BuildIndex(f.rows), nil
}

type fakeRuns struct {
	mu     sync.Mutex
	traces []string
	counts []map[string]int
}

func (f *fakeRuns) InsertRun(_ context.Context, traceID string, _ map[string]float64, counts map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.traces = append(f.traces, traceID)
	f.counts = append(f.counts, counts)
	return nil
}

func TestProcessSpreadsheetWithReferenceCheck(t *testing.T) {
	overrides := &fakeOverrides{}
	ref := fakeReference{rows: [][]string{{"true", "", "", "true", "", "", "RIT.VX1"}}}
	svc := NewService(overrides, ref, nil, nil)

	rows := []internal.InputRow{
		{RowNumber: 2, Ort: "O1", Hersteller: "Rittal", BestellNr: "VX1", Teilemenge: "1"},
		{RowNumber: 3, Ort: "O1", Hersteller: "Unknown", BestellNr: "UNKNOWN.CODE", Teilemenge: "1"},
	}
	res, err := svc.ProcessSpreadsheet(context.Background(), rows, []string{"O1"})
	require.NoError(t, err)

	assert.True(t, res.CodeCheck.Success)
	assert.Equal(t, []string{"UNKNOWN.CODE"}, res.CodeCheck.MissingCodes)
	assert.Empty(t, res.CodeCheck.UnapprovedCodes)
	assert.Equal(t, 1, res.CodeCheck.ExistingCount)
}

func TestProcessSpreadsheetFailsOpenOnReferenceError(t *testing.T) {
	svc := NewService(&fakeOverrides{}, fakeReference{err: errors.WithStack(refsheet.ErrCredentialsMissing)}, nil, nil)

	rows := []internal.InputRow{{RowNumber: 2, Ort: "O1", Hersteller: "Rittal", BestellNr: "VX1"}}
	res, err := svc.ProcessSpreadsheet(context.Background(), rows, []string{"O1"})
	require.NoError(t, err)

	assert.False(t, res.CodeCheck.Success)
	assert.True(t, res.CodeCheck.CredentialsError)
	assert.Equal(t, 1, res.CodeCheck.ExistingCount)
	assert.Len(t, res.Groups.Records["O1"], 1)
}

func TestProcessSpreadsheetFailsOnOverrideError(t *testing.T) {
	svc := NewService(&fakeOverrides{err: errors.New("db locked")}, fakeReference{}, nil, nil)

	_, err := svc.ProcessSpreadsheet(context.Background(), nil, []string{"O1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverridesUnavailable))
}

func TestProcessSpreadsheetHonoursCancellation(t *testing.T) {
	svc := NewService(&fakeOverrides{}, fakeReference{block: true}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.ProcessSpreadsheet(ctx, nil, []string{"O1"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestProcessUploadRecordsRun(t *testing.T) {
	runs := &fakeRuns{}
	overrides := &fakeOverrides{exclusions: []string{"R-3"}}
	svc := NewService(overrides, fakeReference{}, runs, nil)

	blob := mkXLSX([][]any{
		bomHeader,
		{"A1", "F1", "O1", "B1", "Rittal GmbH", "VX8806.030", 2},
		{"A1", "F1", "O1", "B2", "", "X"},
		{"A1", "F1", "O1", "B3", "Rittal GmbH", "R-3", 1},
		{"A1", "F1", "O2", "B4", "Rittal GmbH", "R-4", 1},
	})

	out, err := svc.ProcessUpload(context.Background(), blob, []string{"O1"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.TraceID)
	assert.NotEmpty(t, out.Workbook)
	assert.Len(t, out.InvalidRows, 1)
	assert.Equal(t, []string{"RIT.VX8806.030"}, out.Groups.Codes())

	require.Len(t, runs.traces, 1)
	assert.Equal(t, out.TraceID, runs.traces[0])
	assert.Equal(t, 4, runs.counts[0]["rows"])
	assert.Equal(t, 1, runs.counts[0]["valid"])
	assert.Equal(t, 1, runs.counts[0]["invalid"])
}

func TestProcessUploadMissingColumnsRecordsNothing(t *testing.T) {
	runs := &fakeRuns{}
	svc := NewService(&fakeOverrides{}, fakeReference{}, runs, nil)

	_, err := svc.ProcessUpload(context.Background(), mkXLSX([][]any{{"Ort"}}), []string{"O1"})
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Empty(t, runs.traces)
}
