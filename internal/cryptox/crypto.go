// Package cryptox encrypts key material at rest with AES-GCM under a key
// derived from a server secret with Argon2id.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// DeriveKey stretches secret into a 256-bit AES key.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, keySize)
}

// Sealer encrypts and decrypts small secrets such as EOA private keys.
// Each sealed value carries its own salt and nonce:
//
//	salt(16) || nonce(12) || ciphertext
type Sealer struct {
	secret []byte
}

func NewSealer(secret string) *Sealer {
	return &Sealer{secret: []byte(secret)}
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(saltSize)
	if salt == nil {
		return nil, errors.New("no randomness available")
	}

	key := DeriveKey(s.secret, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	if nonce == nil {
		return nil, errors.New("no randomness available")
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aesgcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltSize {
		return nil, ErrMalformedCiphertext
	}

	key := DeriveKey(s.secret, sealed[:saltSize])
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	rest := sealed[saltSize:]
	if len(rest) < aesgcm.NonceSize()+aesgcm.Overhead() {
		return nil, ErrMalformedCiphertext
	}
	nonce, ciphertext := rest[:aesgcm.NonceSize()], rest[aesgcm.NonceSize():]

	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
