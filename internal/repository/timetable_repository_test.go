package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slotCols = []string{"id", "staff_id", "weekday", "starts_at", "ends_at", "subject", "room", "created_at"}

func TestTimetableRepositoryCurrentSlot(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTimetableRepository(mock)
	at := time.Date(2026, 3, 3, 10, 15, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM timetable_slots`).
		WithArgs("staff-1", int(time.Tuesday), "10:15:00").
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow("slot-1", "staff-1", int16(2), "10:00", "11:30", "Algebra", "B12", at))

	slot, err := repo.CurrentSlot(context.Background(), "staff-1", at)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, time.Tuesday, slot.Weekday)
	assert.Equal(t, "Algebra", slot.Subject)
}

func TestTimetableRepositoryNoCurrentSlot(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTimetableRepository(mock)
	at := time.Date(2026, 3, 8, 22, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM timetable_slots`).
		WithArgs("staff-1", int(time.Sunday), "22:00:00").
		WillReturnRows(pgxmock.NewRows(slotCols))

	slot, err := repo.CurrentSlot(context.Background(), "staff-1", at)
	require.NoError(t, err)
	assert.Nil(t, slot)
}
