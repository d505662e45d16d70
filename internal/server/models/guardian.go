package models

import "database/sql"

// Guardian is a party that may take part in recovering an account. AccountID
// stays NULL until the guardian's own email registers an account.
type Guardian struct {
	ID            string
	Email         string
	AccountID     sql.NullString
	WalletAddress sql.NullString
}

// GuardianStatus is the state of an AccountGuardian link.
type GuardianStatus string

const (
	GuardianAvailable GuardianStatus = "AVAILABLE"
	GuardianActive    GuardianStatus = "ACTIVE"
)

// AccountGuardian records that GuardianID is a recovery participant for
// AccountID.
type AccountGuardian struct {
	ID         string
	GuardianID string
	AccountID  string
	Status     GuardianStatus
}

// AccountGuardianView is an AccountGuardian row joined to its Guardian.
// Email and WalletAddress are empty when the join does not resolve.
type AccountGuardianView struct {
	ID            string
	Email         string
	WalletAddress string
	Status        GuardianStatus
}

// GuardianAccountView is an account as seen by one of its guardians.
type GuardianAccountView struct {
	ID            string
	Email         string
	WalletAddress string
}
