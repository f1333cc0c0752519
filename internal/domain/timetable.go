package domain

import "time"

// TimetableSlot is a weekly recurring teaching slot for a staff member.
type TimetableSlot struct {
	ID        string
	StaffID   string
	Weekday   time.Weekday
	StartsAt  string
	EndsAt    string
	Subject   string
	Room      string
	CreatedAt time.Time
}
