package models

import (
	"strings"
)

type NominationStatus string

const (
	NominationPending  NominationStatus = "PENDING"
	NominationAccepted NominationStatus = "ACCEPTED"
	NominationRejected NominationStatus = "REJECTED"
)

// ParseNominationStatus upper-cases s and reports whether it names a known
// status.
func ParseNominationStatus(s string) (NominationStatus, bool) {
	st := NominationStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case NominationPending, NominationAccepted, NominationRejected:
		return st, true
	}
	return st, false
}

// Nomination is an invitation from AccountID to GuardianID, addressed to Email.
type Nomination struct {
	ID         string
	Email      string
	GuardianID string
	AccountID  string
	Status     NominationStatus
}
