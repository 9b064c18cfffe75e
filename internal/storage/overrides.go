package storage

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
)

func (d *DB) FetchManualAbbreviations(ctx context.Context) ([]internal.ManualAbbreviation, error) {
	return d.listAbbreviations(ctx, `ORDER BY id ASC`)
}

// ListManualAbbreviations returns the newest entries first.
func (d *DB) ListManualAbbreviations(ctx context.Context) ([]internal.ManualAbbreviation, error) {
	return d.listAbbreviations(ctx, `ORDER BY createdAt DESC, id DESC`)
}

func (d *DB) listAbbreviations(ctx context.Context, order string) ([]internal.ManualAbbreviation, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	rows, err := d.conn.QueryContext(ctx, `SELECT orderNumber, abbreviation, createdAt, updatedAt FROM manual_abbreviations `+order)
	if err != nil {
		return nil, errors.Errorf("list manual abbreviations: %w", err)
	}
	defer rows.Close()

	out := []internal.ManualAbbreviation{}
	for rows.Next() {
		var a internal.ManualAbbreviation
		if err := rows.Scan(&a.OrderNumber, &a.Abbreviation, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, a)
	}
	return out, errors.WithStack(rows.Err())
}

// UpsertManualAbbreviation keeps createdAt of an existing entry.
func (d *DB) UpsertManualAbbreviation(ctx context.Context, orderNumber, abbreviation string) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	_, err := d.conn.ExecContext(ctx, `
INSERT INTO manual_abbreviations (orderNumber, abbreviation) VALUES (?, ?)
ON CONFLICT(orderNumber) DO UPDATE SET
  abbreviation = excluded.abbreviation,
  updatedAt = CURRENT_TIMESTAMP
`, strings.TrimSpace(orderNumber), strings.TrimSpace(abbreviation))
	if err != nil {
		return errors.Errorf("upsert manual abbreviation %q: %w", orderNumber, err)
	}
	return nil
}

func (d *DB) DeleteManualAbbreviation(ctx context.Context, orderNumber string) (bool, error) {
	return d.deleteBy(ctx, `DELETE FROM manual_abbreviations WHERE orderNumber = ?`, orderNumber)
}

func (d *DB) FetchOrderReplacements(ctx context.Context) ([]internal.OrderReplacement, error) {
	return d.listReplacements(ctx, `ORDER BY id ASC`)
}

func (d *DB) ListOrderReplacements(ctx context.Context) ([]internal.OrderReplacement, error) {
	return d.listReplacements(ctx, `ORDER BY createdAt DESC, id DESC`)
}

func (d *DB) listReplacements(ctx context.Context, order string) ([]internal.OrderReplacement, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	rows, err := d.conn.QueryContext(ctx, `SELECT originalOrderNumber, replacementOrderNumber, createdAt, updatedAt FROM order_replacements `+order)
	if err != nil {
		return nil, errors.Errorf("list order replacements: %w", err)
	}
	defer rows.Close()

	out := []internal.OrderReplacement{}
	for rows.Next() {
		var r internal.OrderReplacement
		if err := rows.Scan(&r.OriginalOrderNumber, &r.ReplacementOrderNumber, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, r)
	}
	return out, errors.WithStack(rows.Err())
}

func (d *DB) UpsertOrderReplacement(ctx context.Context, original, replacement string) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	_, err := d.conn.ExecContext(ctx, `
INSERT INTO order_replacements (originalOrderNumber, replacementOrderNumber) VALUES (?, ?)
ON CONFLICT(originalOrderNumber) DO UPDATE SET
  replacementOrderNumber = excluded.replacementOrderNumber,
  updatedAt = CURRENT_TIMESTAMP
`, strings.TrimSpace(original), strings.TrimSpace(replacement))
	if err != nil {
		return errors.Errorf("upsert order replacement %q: %w", original, err)
	}
	return nil
}

func (d *DB) DeleteOrderReplacement(ctx context.Context, original string) (bool, error) {
	return d.deleteBy(ctx, `DELETE FROM order_replacements WHERE originalOrderNumber = ?`, original)
}

// FetchExclusions returns the excluded order numbers as stored.
func (d *DB) FetchExclusions(ctx context.Context) ([]string, error) {
	items, err := d.listExclusions(ctx, `ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.OrderNumber)
	}
	return out, nil
}

func (d *DB) ListExclusions(ctx context.Context) ([]internal.Exclusion, error) {
	return d.listExclusions(ctx, `ORDER BY createdAt DESC, id DESC`)
}

func (d *DB) listExclusions(ctx context.Context, order string) ([]internal.Exclusion, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	rows, err := d.conn.QueryContext(ctx, `SELECT orderNumber, createdAt, updatedAt FROM exclusions `+order)
	if err != nil {
		return nil, errors.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	out := []internal.Exclusion{}
	for rows.Next() {
		var e internal.Exclusion
		if err := rows.Scan(&e.OrderNumber, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, e)
	}
	return out, errors.WithStack(rows.Err())
}

// AddExclusion reports false when the order number is already excluded.
func (d *DB) AddExclusion(ctx context.Context, orderNumber string) (bool, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	result, err := d.conn.ExecContext(ctx, `INSERT INTO exclusions (orderNumber) VALUES (?) ON CONFLICT(orderNumber) DO NOTHING`, strings.TrimSpace(orderNumber))
	if err != nil {
		return false, errors.Errorf("add exclusion %q: %w", orderNumber, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return n > 0, nil
}

func (d *DB) DeleteExclusion(ctx context.Context, orderNumber string) (bool, error) {
	return d.deleteBy(ctx, `DELETE FROM exclusions WHERE orderNumber = ?`, orderNumber)
}

func (d *DB) deleteBy(ctx context.Context, query, key string) (bool, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	result, err := d.conn.ExecContext(ctx, query, strings.TrimSpace(key))
	if err != nil {
		return false, errors.Errorf("delete %q: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return n > 0, nil
}
