// Package wallet is the boundary to contract wallet provisioning.
package wallet

import (
	"context"
)

// Keys is what provisioning a wallet yields. EOAPrivateKey is the raw
// 32-byte secp256k1 scalar of the owner key.
type Keys struct {
	WalletAddress string
	EOAAddress    string
	EOAPrivateKey []byte
}

// Creator provisions a contract wallet and its owner key.
type Creator interface {
	CreateWallet(ctx context.Context, paymasterTokens []string) (*Keys, error)
}
