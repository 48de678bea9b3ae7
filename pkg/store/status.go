package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

// StatusFilter specifies criteria for querying status records.
type StatusFilter struct {
	Kind       statuslog.Kind
	Credential string
	Since      time.Time
	Limit      int // most recent N; 0 means all
}

// InsertStatusRecord adds one status record and returns its row id.
func (s *Store) InsertStatusRecord(ctx context.Context, rec statuslog.Record) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO status_log (timestamp, status, ip, credential, message, request_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UnixMilli(),
		string(rec.Kind),
		rec.IP,
		rec.Credential,
		rec.Message,
		rec.RequestID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert status record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// Write implements statuslog.Sink.
func (s *Store) Write(ctx context.Context, rec statuslog.Record) error {
	_, err := s.InsertStatusRecord(ctx, rec)
	return err
}

// QueryStatusRecords returns matching records in append order. With a Limit,
// only the most recent Limit records are returned.
func (s *Store) QueryStatusRecords(ctx context.Context, filter StatusFilter) ([]statuslog.Record, error) {
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Credential != "" {
		conditions = append(conditions, "credential = ?")
		args = append(args, filter.Credential)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UnixMilli())
	}

	query := `SELECT timestamp, status, ip, credential, message, request_id FROM status_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status records: %w", err)
	}
	defer rows.Close()

	var records []statuslog.Record
	for rows.Next() {
		var rec statuslog.Record
		var ts int64
		var kind string
		if err := rows.Scan(&ts, &kind, &rec.IP, &rec.Credential, &rec.Message, &rec.RequestID); err != nil {
			return nil, fmt.Errorf("failed to scan status record: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts).UTC()
		rec.Kind = statuslog.Kind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows came newest first; return them in append order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// CountByKind returns the number of records per status kind.
func (s *Store) CountByKind(ctx context.Context) (map[statuslog.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM status_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count status records: %w", err)
	}
	defer rows.Close()

	counts := make(map[statuslog.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[statuslog.Kind(kind)] = n
	}
	return counts, rows.Err()
}

// Match reports whether rec satisfies the filter's field criteria. Limit is
// not considered.
func (f StatusFilter) Match(rec statuslog.Record) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Credential != "" && rec.Credential != f.Credential {
		return false
	}
	if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Apply filters records already read from a status log file with the same
// semantics as QueryStatusRecords.
func (f StatusFilter) Apply(records []statuslog.Record) []statuslog.Record {
	out := make([]statuslog.Record, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}
