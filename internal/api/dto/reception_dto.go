package dto

import "time"

// PresenceResponse is one row of the presence board.
type PresenceResponse struct {
	StaffID    string    `json:"staff_id"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	Status     string    `json:"status"`
	LastSeen   time.Time `json:"last_seen,omitempty"`
}

// CallLogResponse is one finished call from the caller's history.
type CallLogResponse struct {
	CallID          string    `json:"call_id"`
	ClientName      string    `json:"client_name"`
	Purpose         string    `json:"purpose,omitempty"`
	Status          string    `json:"status"`
	EndedBy         string    `json:"ended_by"`
	Reason          string    `json:"reason,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// PageMeta describes the window returned by a list endpoint.
type PageMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
