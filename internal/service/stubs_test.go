package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/reception-service/internal/domain"
)

type stubStaffRepo struct {
	members []domain.StaffMember
	err     error
	created []domain.StaffMember
}

func (s *stubStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	if s.err != nil {
		return s.err
	}
	staff.ID = "staff-new"
	s.created = append(s.created, *staff)
	return nil
}

func (s *stubStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	return s.first(func(m domain.StaffMember) bool { return m.ID == id })
}

func (s *stubStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	return s.first(func(m domain.StaffMember) bool { return strings.EqualFold(m.Email, email) })
}

func (s *stubStaffRepo) GetByShortCode(_ context.Context, code string) (*domain.StaffMember, error) {
	return s.first(func(m domain.StaffMember) bool { return m.ShortCode != "" && strings.EqualFold(m.ShortCode, code) })
}

func (s *stubStaffRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.StaffMember, error) {
	m, err := s.first(func(m domain.StaffMember) bool {
		if !m.Active {
			return false
		}
		for _, alias := range append(m.Aliases(), m.ID) {
			if strings.EqualFold(alias, identifier) {
				return true
			}
		}
		return false
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (s *stubStaffRepo) ListActive(context.Context) ([]domain.StaffMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.StaffMember
	for _, m := range s.members {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubStaffRepo) first(match func(domain.StaffMember) bool) (*domain.StaffMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, m := range s.members {
		if match(m) {
			m := m
			return &m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type stubTimetableRepo struct {
	slot  *domain.TimetableSlot
	err   error
	calls int
}

func (s *stubTimetableRepo) CurrentSlot(context.Context, string, time.Time) (*domain.TimetableSlot, error) {
	s.calls++
	return s.slot, s.err
}

func (s *stubTimetableRepo) ListByStaff(context.Context, string) ([]domain.TimetableSlot, error) {
	if s.slot == nil {
		return nil, s.err
	}
	return []domain.TimetableSlot{*s.slot}, s.err
}

type stubCallLogRepo struct {
	entries    []domain.CallLogEntry
	err        error
	lastLimit  int
	lastOffset int
}

func (s *stubCallLogRepo) Upsert(_ context.Context, entry domain.CallLogEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubCallLogRepo) ListByStaff(_ context.Context, _ string, limit, offset int) ([]domain.CallLogEntry, error) {
	s.lastLimit, s.lastOffset = limit, offset
	return s.entries, s.err
}
