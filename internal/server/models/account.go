// Package models defines server-side data models persisted in the database.
package models

// Account owns at most one contract wallet. EOAPrivateKey holds the owner
// key encrypted at rest and never leaves the service layer.
type Account struct {
	ID            string
	Email         string
	WalletAddress string
	EOAAddress    string
	EOAPrivateKey []byte
	// UpdatedAt is epoch millis.
	UpdatedAt int64
}
