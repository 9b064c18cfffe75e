package storage

import (
	"context"
	"encoding/json"

	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
)

func (d *DB) InsertRun(ctx context.Context, traceID string, timings map[string]float64, counts map[string]int) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.ExecContext(ctx, `INSERT INTO runs (traceId, timingsJson, countsJson) VALUES (?, ?, ?)`, traceID, string(timingsJSON), string(countsJSON))
	if err != nil {
		return errors.Errorf("insert run %s: %w", traceID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]internal.RunRow, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, traceId, timingsJson, countsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, errors.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []internal.RunRow{}
	for rows.Next() {
		var row internal.RunRow
		var timingsJSON, countsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &timingsJSON, &countsJSON, &row.CreatedAt); err != nil {
			return nil, errors.WithStack(err)
		}
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, errors.WithStack(rows.Err())
}
