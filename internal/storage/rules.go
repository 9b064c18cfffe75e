package storage

import (
	"context"
	"database/sql"

	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
)

const ruleColumns = `id, regexPattern, outputFormat, priority, isActive, createdAt, updatedAt`

// FetchRules returns the active rules in application order.
func (d *DB) FetchRules(ctx context.Context) ([]internal.Rule, error) {
	return d.ListRules(ctx, true)
}

func (d *DB) ListRules(ctx context.Context, activeOnly bool) ([]internal.Rule, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + ruleColumns + ` FROM rules`
	if activeOnly {
		query += ` WHERE isActive = 1`
	}
	query += ` ORDER BY priority ASC, id ASC`

	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	out := []internal.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, errors.WithStack(rows.Err())
}

func (d *DB) GetRule(ctx context.Context, id int64) (internal.Rule, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	row := d.conn.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Rule{}, errors.WithStack(ErrNotFound)
	}
	return rule, err
}

func (d *DB) CreateRule(ctx context.Context, pattern, format string, priority int) (internal.Rule, error) {
	id, err := d.insertRule(ctx, pattern, format, priority, true)
	if err != nil {
		return internal.Rule{}, err
	}
	return d.GetRule(ctx, id)
}

func (d *DB) insertRule(ctx context.Context, pattern, format string, priority int, active bool) (int64, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	result, err := d.conn.ExecContext(ctx, `
INSERT INTO rules (regexPattern, outputFormat, priority, isActive) VALUES (?, ?, ?, ?)
`, pattern, format, priority, boolToInt(active))
	if err != nil {
		return 0, errors.Errorf("insert rule: %w", err)
	}
	id, err := result.LastInsertId()
	return id, errors.WithStack(err)
}

// RulePatch carries the fields of an update; nil fields are left unchanged.
type RulePatch struct {
	RegexPattern *string
	OutputFormat *string
	Priority     *int
	IsActive     *bool
}

func (d *DB) UpdateRule(ctx context.Context, id int64, patch RulePatch) (internal.Rule, error) {
	current, err := d.GetRule(ctx, id)
	if err != nil {
		return internal.Rule{}, err
	}
	if patch.RegexPattern != nil {
		current.RegexPattern = *patch.RegexPattern
	}
	if patch.OutputFormat != nil {
		current.OutputFormat = *patch.OutputFormat
	}
	if patch.Priority != nil {
		current.Priority = *patch.Priority
	}
	if patch.IsActive != nil {
		current.IsActive = *patch.IsActive
	}

	execCtx, cancel := d.withTimeout(ctx)
	defer cancel()
	_, err = d.conn.ExecContext(execCtx, `
UPDATE rules SET regexPattern = ?, outputFormat = ?, priority = ?, isActive = ?, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, current.RegexPattern, current.OutputFormat, current.Priority, boolToInt(current.IsActive), id)
	if err != nil {
		return internal.Rule{}, errors.Errorf("update rule %d: %w", id, err)
	}
	return d.GetRule(ctx, id)
}

// ImportRules inserts all rules in one transaction.
func (d *DB) ImportRules(ctx context.Context, rules []internal.Rule) (int, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rules (regexPattern, outputFormat, priority, isActive) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer stmt.Close()

	for _, r := range rules {
		if _, err := stmt.ExecContext(ctx, r.RegexPattern, r.OutputFormat, r.Priority, boolToInt(r.IsActive)); err != nil {
			return 0, errors.Errorf("import rule %q: %w", r.RegexPattern, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(rules), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (internal.Rule, error) {
	var r internal.Rule
	var active int
	if err := s.Scan(&r.ID, &r.RegexPattern, &r.OutputFormat, &r.Priority, &active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, errors.WithStack(err)
	}
	r.IsActive = active != 0
	return r, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
