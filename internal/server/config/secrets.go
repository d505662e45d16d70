package config

import (
	"fmt"
	"os"
	"strings"
)

// SecretResolver turns a configured value into the secret it refers to.
type SecretResolver interface {
	Resolve(ref string) (string, error)
}

// EnvFileResolver understands two reference forms:
//
//	env:NAME   value of environment variable NAME (must be set)
//	file:PATH  contents of PATH with surrounding whitespace trimmed
//
// Any other value is returned unchanged.
type EnvFileResolver struct {
	LookupEnv func(string) (string, bool)
	ReadFile  func(string) ([]byte, error)
}

// NewSecretResolver returns an EnvFileResolver bound to the process
// environment and filesystem.
func NewSecretResolver() *EnvFileResolver {
	return &EnvFileResolver{LookupEnv: os.LookupEnv, ReadFile: os.ReadFile}
}

func (r *EnvFileResolver) Resolve(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		v, ok := r.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("secret %s: environment variable not set", ref)
		}
		return v, nil
	case strings.HasPrefix(ref, "file:"):
		b, err := r.ReadFile(strings.TrimPrefix(ref, "file:"))
		if err != nil {
			return "", fmt.Errorf("secret %s: %w", ref, err)
		}
		return strings.TrimSpace(string(b)), nil
	default:
		return ref, nil
	}
}

// ResolveSecrets replaces every secret-bearing field with its resolved value.
func (c *Config) ResolveSecrets(r SecretResolver) error {
	for _, field := range []*string{&c.DatabaseDSN, &c.SecretKey, &c.KeyEncryptionSecret} {
		v, err := r.Resolve(*field)
		if err != nil {
			return err
		}
		if v == "" {
			return fmt.Errorf("secret %q resolved to an empty value", *field)
		}
		*field = v
	}
	return nil
}
