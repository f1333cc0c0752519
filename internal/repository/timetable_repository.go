package repository

import (
	"context"
	"time"

	"github.com/campusdesk/reception-service/internal/domain"
)

// TimetableRepository reads teaching slots. Slots are maintained elsewhere.
type TimetableRepository interface {
	CurrentSlot(ctx context.Context, staffID string, at time.Time) (*domain.TimetableSlot, error)
	ListByStaff(ctx context.Context, staffID string) ([]domain.TimetableSlot, error)
}

type timetableRepository struct {
	db DBTX
}

// NewTimetableRepository instantiates the repository.
func NewTimetableRepository(db DBTX) TimetableRepository {
	return &timetableRepository{db: db}
}

// CurrentSlot returns the slot covering at, or nil when no class is running.
func (r *timetableRepository) CurrentSlot(ctx context.Context, staffID string, at time.Time) (*domain.TimetableSlot, error) {
	const query = `
        SELECT id, staff_id, weekday, to_char(starts_at, 'HH24:MI'), to_char(ends_at, 'HH24:MI'), subject, room, created_at
        FROM timetable_slots
        WHERE staff_id::text=$1 AND weekday=$2 AND starts_at <= $3::time AND ends_at > $3::time
        ORDER BY starts_at ASC
        LIMIT 1`

	rows, err := r.db.Query(ctx, query, staffID, int(at.Weekday()), at.Format("15:04:05"))
	if err != nil {
		return nil, err
	}
	slots, err := collectSlots(rows)
	if err != nil || len(slots) == 0 {
		return nil, err
	}
	return &slots[0], nil
}

func (r *timetableRepository) ListByStaff(ctx context.Context, staffID string) ([]domain.TimetableSlot, error) {
	const query = `
        SELECT id, staff_id, weekday, to_char(starts_at, 'HH24:MI'), to_char(ends_at, 'HH24:MI'), subject, room, created_at
        FROM timetable_slots
        WHERE staff_id::text=$1
        ORDER BY weekday ASC, starts_at ASC`

	rows, err := r.db.Query(ctx, query, staffID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

type slotRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

func collectSlots(rows slotRows) ([]domain.TimetableSlot, error) {
	defer rows.Close()

	var result []domain.TimetableSlot
	for rows.Next() {
		var (
			slot    domain.TimetableSlot
			weekday int16
		)
		if err := rows.Scan(
			&slot.ID,
			&slot.StaffID,
			&weekday,
			&slot.StartsAt,
			&slot.EndsAt,
			&slot.Subject,
			&slot.Room,
			&slot.CreatedAt,
		); err != nil {
			return nil, err
		}
		slot.Weekday = time.Weekday(weekday)
		result = append(result, slot)
	}
	return result, rows.Err()
}
