package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRulesOrderingAndActiveFilter(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	late, err := db.CreateRule(ctx, `^B(\d+)$`, "B.{model}", 5)
	require.NoError(t, err)
	_, err = db.CreateRule(ctx, `^A(\d+)$`, "A.{model}", 1)
	require.NoError(t, err)
	tie, err := db.CreateRule(ctx, `^C(\d+)$`, "C.{model}", 1)
	require.NoError(t, err)
	assert.True(t, late.IsActive)
	assert.NotEmpty(t, late.CreatedAt)

	rules, err := db.FetchRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "A.{model}", rules[0].OutputFormat)
	assert.Equal(t, tie.ID, rules[1].ID)
	assert.Equal(t, late.ID, rules[2].ID)

	inactive := false
	updated, err := db.UpdateRule(ctx, late.ID, RulePatch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, `^B(\d+)$`, updated.RegexPattern)

	rules, err = db.FetchRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	all, err := db.ListRules(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateRuleNotFound(t *testing.T) {
	db := openTestDB(t)
	p := 3
	_, err := db.UpdateRule(context.Background(), 999, RulePatch{Priority: &p})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestImportRules(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	n, err := db.ImportRules(ctx, []internal.Rule{
		{RegexPattern: `^X(\d+)`, OutputFormat: "X.{model}", Priority: 2, IsActive: true},
		{RegexPattern: `^Y(\d+)`, OutputFormat: "Y.{model}", Priority: 1, IsActive: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := db.FetchRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "X.{model}", active[0].OutputFormat)
}

func TestManualAbbreviationUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertManualAbbreviation(ctx, " 3RT2015 ", "SIE.3RT"))
	require.NoError(t, db.UpsertManualAbbreviation(ctx, "3RT2015", "SIE.3RT2015"))

	items, err := db.FetchManualAbbreviations(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "3RT2015", items[0].OrderNumber)
	assert.Equal(t, "SIE.3RT2015", items[0].Abbreviation)

	deleted, err := db.DeleteManualAbbreviation(ctx, "3RT2015")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.DeleteManualAbbreviation(ctx, "3RT2015")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestOrderReplacements(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertOrderReplacement(ctx, "OLD-1", "NEW-1"))
	require.NoError(t, db.UpsertOrderReplacement(ctx, "OLD-2", "NEW-2"))

	fetched, err := db.FetchOrderReplacements(ctx)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "OLD-1", fetched[0].OriginalOrderNumber)

	listed, err := db.ListOrderReplacements(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "OLD-2", listed[0].OriginalOrderNumber)
}

func TestExclusionsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	created, err := db.AddExclusion(ctx, "X-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.AddExclusion(ctx, "X-1")
	require.NoError(t, err)
	assert.False(t, created)

	values, err := db.FetchExclusions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"X-1"}, values)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.InsertRun(ctx, "trace-1", map[string]float64{"total": 12.5}, map[string]int{"valid": 3}))
	require.NoError(t, db.InsertRun(ctx, "trace-2", nil, nil))

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "trace-2", runs[0].TraceID)
	assert.Equal(t, 3, runs[1].Counts["valid"])
	assert.InDelta(t, 12.5, runs[1].Timings["total"], 0.001)
}
