package repository

import (
	"context"

	"github.com/campusdesk/reception-service/internal/domain"
)

// CallLogRepository stores finished call records.
type CallLogRepository interface {
	Upsert(ctx context.Context, entry domain.CallLogEntry) error
	ListByStaff(ctx context.Context, staffID string, limit, offset int) ([]domain.CallLogEntry, error)
}

type callLogRepository struct {
	db DBTX
}

// NewCallLogRepository instantiates the repository.
func NewCallLogRepository(db DBTX) CallLogRepository {
	return &callLogRepository{db: db}
}

// Upsert writes the entry keyed by (call_id, staff_id). A repeated write for the
// same call overwrites the row instead of adding one.
func (r *callLogRepository) Upsert(ctx context.Context, entry domain.CallLogEntry) error {
	const query = `
        INSERT INTO call_logs (call_id, staff_id, staff_name, client_name, purpose, status, ended_by, reason, started_at, ended_at, duration_seconds)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (call_id, staff_id) DO UPDATE SET
            status=EXCLUDED.status,
            ended_by=EXCLUDED.ended_by,
            reason=EXCLUDED.reason,
            ended_at=EXCLUDED.ended_at,
            duration_seconds=EXCLUDED.duration_seconds`

	_, err := r.db.Exec(ctx, query,
		entry.CallID,
		entry.StaffID,
		entry.StaffName,
		entry.ClientName,
		entry.Purpose,
		entry.Status,
		entry.EndedBy,
		entry.Reason,
		entry.StartedAt,
		entry.EndedAt,
		entry.DurationSeconds,
	)
	return err
}

func (r *callLogRepository) ListByStaff(ctx context.Context, staffID string, limit, offset int) ([]domain.CallLogEntry, error) {
	const query = `
        SELECT call_id, staff_id, staff_name, client_name, purpose, status, ended_by, reason, started_at, ended_at, duration_seconds, created_at
        FROM call_logs
        WHERE staff_id::text=$1
        ORDER BY started_at DESC
        LIMIT $2 OFFSET $3`

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, query, staffID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CallLogEntry
	for rows.Next() {
		var entry domain.CallLogEntry
		if err := rows.Scan(
			&entry.CallID,
			&entry.StaffID,
			&entry.StaffName,
			&entry.ClientName,
			&entry.Purpose,
			&entry.Status,
			&entry.EndedBy,
			&entry.Reason,
			&entry.StartedAt,
			&entry.EndedAt,
			&entry.DurationSeconds,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
