package domain

import "time"

// PresenceStatus is the derived reachability of a staff identity.
type PresenceStatus string

const (
	PresenceOffline PresenceStatus = "offline"
	PresenceOnline  PresenceStatus = "online"
	PresenceBusy    PresenceStatus = "busy"
	PresenceInClass PresenceStatus = "in_class"
)

// PresenceSnapshot is a point-in-time view of one identity.
type PresenceSnapshot struct {
	StaffID    string
	Name       string
	Department string
	Status     PresenceStatus
	LastSeen   time.Time
}
