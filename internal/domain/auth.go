package domain

import "time"

// SubjectType differentiates visitor vs staff tokens.
type SubjectType string

const (
	SubjectTypeVisitor SubjectType = "VISITOR"
	SubjectTypeStaff   SubjectType = "STAFF"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID          string
	SubjectID   string
	Subject     SubjectType
	DisplayName string
	ExpiresAt   time.Time
	IssuedAt    time.Time
}
