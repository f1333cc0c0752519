package domain

import "time"

// CallStatus enumerates lifecycle states of a call session.
type CallStatus string

const (
	CallStatusConnecting CallStatus = "connecting"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusAborted    CallStatus = "aborted"
)

// Terminal reports whether no further transition may leave the status.
func (s CallStatus) Terminal() bool {
	return s == CallStatusCompleted || s == CallStatusAborted
}

// CallLogEntry is the persisted record of one finished call, keyed by (CallID, StaffID).
type CallLogEntry struct {
	CallID          string
	StaffID         string
	StaffName       string
	ClientName      string
	Purpose         string
	Status          CallStatus
	EndedBy         string
	Reason          string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int64
	CreatedAt       time.Time
}
