package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
)

// Resolver maps an inbound credential to the id of the acting account.
// Every failure wraps common.ErrorUnauthorized.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// JWTResolver resolves HS256 access tokens issued by GenerateToken.
type JWTResolver struct {
	secretKey []byte
}

func NewJWTResolver(secretKey []byte) *JWTResolver {
	return &JWTResolver{secretKey: secretKey}
}

func (r *JWTResolver) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", fmt.Errorf("%w: missing token", common.ErrorUnauthorized)
	}

	accountID, err := GetAccountIDFromToken(token, r.secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	return accountID, nil
}
