package domain

import "time"

// StaffMember models a member of staff reachable through reception.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	ShortCode    string
	PasswordHash string
	Department   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Aliases returns every alternate identifier under which the member may be addressed.
func (s StaffMember) Aliases() []string {
	aliases := make([]string, 0, 3)
	for _, a := range []string{s.Email, s.ShortCode, s.Name} {
		if a != "" {
			aliases = append(aliases, a)
		}
	}
	return aliases
}
