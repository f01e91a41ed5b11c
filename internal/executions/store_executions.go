package executions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"syndicate/internal/services"
)

// ErrActiveExists indicates an execution for the asset is already running.
var ErrActiveExists = errors.New("execution already active for asset")

const executionColumns = "id, asset_id, status, report_json, error_message, created_at, updated_at, finished_at"

// Create inserts a new running execution for the asset. When one is already
// running the unique index rejects the insert and ErrActiveExists is
// returned with the existing execution. If the running execution finishes
// between the rejected insert and the lookup, the insert is retried so the
// caller never sees ErrActiveExists without an execution.
func (s *Store) Create(ctx context.Context, assetID string) (*Execution, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return nil, services.Wrap(services.ErrValidation, "executions", "create", "asset id is required", nil)
	}

	for attempt := 0; attempt < 3; attempt++ {
		id := uuid.NewString()
		timestamp := time.Now().UTC().Format(time.RFC3339Nano)

		err := s.execWithRetry(ctx,
			`INSERT INTO executions (id, asset_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, assetID, StatusRunning, timestamp, timestamp,
		)
		if err == nil {
			return s.GetByID(ctx, id)
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("insert execution: %w", err)
		}
		existing, findErr := s.FindActiveByAsset(ctx, assetID)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			return existing, fmt.Errorf("%w: %s", ErrActiveExists, assetID)
		}
		// The conflicting execution finished already; insert again.
	}
	return nil, fmt.Errorf("insert execution for %s: active execution kept vanishing", assetID)
}

// GetByID fetches an execution by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Execution, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)
	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return execution, nil
}

// FindActiveByAsset returns the running execution for an asset, or nil.
func (s *Store) FindActiveByAsset(ctx context.Context, assetID string) (*Execution, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+executionColumns+` FROM executions WHERE asset_id = ? AND status = ?`,
		assetID, StatusRunning)
	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active execution: %w", err)
	}
	return execution, nil
}

// MarkCompleted finishes the execution successfully and stores its report.
func (s *Store) MarkCompleted(ctx context.Context, id, reportJSON string) error {
	return s.finish(ctx, id, StatusCompleted, reportJSON, "")
}

// MarkFailed finishes the execution with an error message and no report.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, StatusFailed, "", message)
}

func (s *Store) finish(ctx context.Context, id string, status Status, reportJSON, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	ctx = ensureContext(ctx)

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`UPDATE executions
             SET status = ?, report_json = ?, error_message = ?, updated_at = ?, finished_at = ?
             WHERE id = ? AND status = ?`,
			status, nullableString(reportJSON), nullableString(message), timestamp, timestamp,
			id, StatusRunning)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish execution rows: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "executions", "finish", "no running execution with id "+id, nil)
	}
	return nil
}

// List returns executions ordered newest first, capped at limit when
// limit is positive.
func (s *Store) List(ctx context.Context, limit int) ([]*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ListByAsset returns the execution history for one asset, newest first.
func (s *Store) ListByAsset(ctx context.Context, assetID string) ([]*Execution, error) {
	return s.query(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE asset_id = ? ORDER BY created_at DESC`,
		assetID)
}

// CountByStatus summarizes the ledger for status displays.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM executions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Execution, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Execution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		results = append(results, execution)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*Execution, error) {
	var (
		execution  Execution
		report     sql.NullString
		message    sql.NullString
		createdAt  string
		updatedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&execution.ID, &execution.AssetID, &execution.Status,
		&report, &message, &createdAt, &updatedAt, &finishedAt); err != nil {
		return nil, err
	}
	execution.ReportJSON = report.String
	execution.ErrorMessage = message.String

	var err error
	if execution.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if execution.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		finished, err := parseTimestamp(finishedAt.String)
		if err != nil {
			return nil, err
		}
		execution.FinishedAt = &finished
	}
	return &execution, nil
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}
