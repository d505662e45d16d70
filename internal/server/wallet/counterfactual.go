package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"golang.org/x/crypto/sha3"
)

// Counterfactual creates a fresh owner key and computes the CREATE2 address
// the wallet factory will deploy the account contract to. Nothing is sent
// on chain; paymaster tokens are accepted for interface compatibility and
// only validated.
type Counterfactual struct {
	factory      []byte
	initCodeHash []byte
}

// NewCounterfactual parses the hex factory address (20 bytes) and init code
// hash (32 bytes).
func NewCounterfactual(factoryAddress, initCodeHash string) (*Counterfactual, error) {
	factory, err := decodeHex(factoryAddress, 20)
	if err != nil {
		return nil, fmt.Errorf("factory address: %w", err)
	}
	hash, err := decodeHex(initCodeHash, 32)
	if err != nil {
		return nil, fmt.Errorf("init code hash: %w", err)
	}
	return &Counterfactual{factory: factory, initCodeHash: hash}, nil
}

func (c *Counterfactual) CreateWallet(ctx context.Context, paymasterTokens []string) (*Keys, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, t := range paymasterTokens {
		if _, err := decodeHex(t, 20); err != nil {
			return nil, fmt.Errorf("%w: paymaster token %q: %w", common.ErrorInvalidInput, t, err)
		}
	}

	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate owner key: %w", err)
	}

	owner := PubKeyAddress(priv.PubKey())
	salt := Keccak256(owner)

	return &Keys{
		WalletAddress: ChecksumAddress(Create2Address(c.factory, salt, c.initCodeHash)),
		EOAAddress:    ChecksumAddress(owner),
		EOAPrivateKey: priv.Serialize(),
	}, nil
}

// Keccak256 is the legacy (pre-NIST) Keccak used by Ethereum.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// PubKeyAddress returns the 20-byte Ethereum address of pub.
func PubKeyAddress(pub *btcec.PublicKey) []byte {
	return Keccak256(pub.SerializeUncompressed()[1:])[12:]
}

// Create2Address computes keccak256(0xff ++ deployer ++ salt ++ initCodeHash)[12:].
func Create2Address(deployer, salt, initCodeHash []byte) []byte {
	return Keccak256([]byte{0xff}, deployer, salt, initCodeHash)[12:]
}

// ChecksumAddress renders addr in EIP-55 mixed-case hex with 0x prefix.
func ChecksumAddress(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := hex.EncodeToString(Keccak256([]byte(lower)))

	var b strings.Builder
	b.Grow(len(lower) + 2)
	b.WriteString("0x")
	for i, c := range lower {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			b.WriteRune(c - 'a' + 'A')
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func decodeHex(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("want %d bytes, got %d", size, len(b))
	}
	return b, nil
}
