package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tapestry/safefetch/internal/domain"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record stores a journal entry and sets its ID
func (s *Store) Record(ctx context.Context, e *domain.JournalEntry) (int64, error) {
	query := `
		INSERT INTO downloads (
			request_id, url, destination, final_path, bytes, checksum,
			status, error_kind, detail, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		e.RequestID, e.URL, nullString(e.Destination), nullString(e.FinalPath), e.Bytes,
		nullString(e.Checksum), e.Status, nullString(e.ErrorKind), nullString(e.Detail),
		formatTime(e.StartedAt), formatTime(e.FinishedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to record download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, request_id, url, destination, final_path, bytes, checksum,
			   status, error_kind, detail, started_at, finished_at
		FROM downloads
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*domain.JournalEntry, error) {
	e := &domain.JournalEntry{}
	var destination, finalPath, checksum, errorKind, detail sql.NullString
	var startedAt, finishedAt string

	err := rows.Scan(&e.ID, &e.RequestID, &e.URL, &destination, &finalPath, &e.Bytes, &checksum,
		&e.Status, &errorKind, &detail, &startedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	e.Destination = destination.String
	e.FinalPath = finalPath.String
	e.Checksum = checksum.String
	e.ErrorKind = errorKind.String
	e.Detail = detail.String
	e.StartedAt = parseTime(startedAt)
	e.FinishedAt = parseTime(finishedAt)
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
