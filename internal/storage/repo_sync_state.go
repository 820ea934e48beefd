package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CollectionContracts is the sync_state key for the contract snapshot.
const CollectionContracts = "contracts"

// SyncState is the bookkeeping for one synced collection.
type SyncState struct {
	Collection   string
	LastSuccess  *time.Time
	LastAttempt  *time.Time
	LastErrorMsg string
}

// Stale reports whether the last successful sync is older than maxAge.
// A collection that never synced is always stale.
func (s SyncState) Stale(now time.Time, maxAge time.Duration) bool {
	if s.LastSuccess == nil {
		return true
	}
	return now.Sub(*s.LastSuccess) >= maxAge
}

type SyncStateRepo struct {
	db *sql.DB
}

func NewSyncStateRepo(db *sql.DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

func (r *SyncStateRepo) Get(ctx context.Context, collection string) (SyncState, bool, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT collection, last_success_at, last_attempt_at, COALESCE(last_error, '')
		 FROM sync_state WHERE collection = ?`,
		collection,
	)

	var state SyncState
	var lastSuccess, lastAttempt sql.NullString
	if err := row.Scan(&state.Collection, &lastSuccess, &lastAttempt, &state.LastErrorMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SyncState{}, false, nil
		}
		return SyncState{}, false, fmt.Errorf("query sync state for %q: %w", collection, err)
	}

	var err error
	if state.LastSuccess, err = parseStoredTime(lastSuccess); err != nil {
		return SyncState{}, false, fmt.Errorf("parse last_success_at for %q: %w", collection, err)
	}
	if state.LastAttempt, err = parseStoredTime(lastAttempt); err != nil {
		return SyncState{}, false, fmt.Errorf("parse last_attempt_at for %q: %w", collection, err)
	}
	return state, true, nil
}

// RecordAttempt marks a sync as started and clears the previous error.
func (r *SyncStateRepo) RecordAttempt(ctx context.Context, collection string, at time.Time) error {
	msg := ""
	return r.upsert(ctx, collection, at, nil, &msg)
}

func (r *SyncStateRepo) RecordSuccess(ctx context.Context, collection string, at time.Time) error {
	msg := ""
	return r.upsert(ctx, collection, at, &at, &msg)
}

func (r *SyncStateRepo) RecordError(ctx context.Context, collection string, at time.Time, syncErr error) error {
	msg := ""
	if syncErr != nil {
		msg = syncErr.Error()
	}
	return r.upsert(ctx, collection, at, nil, &msg)
}

func (r *SyncStateRepo) upsert(
	ctx context.Context,
	collection string,
	attemptAt time.Time,
	successAt *time.Time,
	errorMsg *string,
) error {
	var successValue, errorValue any
	if successAt != nil {
		successValue = formatStoredTime(*successAt)
	}
	if errorMsg != nil {
		errorValue = *errorMsg
	}

	const q = `
INSERT INTO sync_state (collection, last_attempt_at, last_success_at, last_error)
VALUES (?, ?, ?, ?)
ON CONFLICT(collection) DO UPDATE SET
  last_attempt_at = excluded.last_attempt_at,
  last_success_at = COALESCE(excluded.last_success_at, sync_state.last_success_at),
  last_error = COALESCE(excluded.last_error, sync_state.last_error)
`
	if _, err := r.db.ExecContext(ctx, q, collection, formatStoredTime(attemptAt), successValue, errorValue); err != nil {
		return fmt.Errorf("upsert sync state for %q: %w", collection, err)
	}
	return nil
}

func formatStoredTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
