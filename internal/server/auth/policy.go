package auth

import (
	"context"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

// Authorize permits the operation only when the token's role equals
// required exactly. Admin does not imply User and vice versa.
func Authorize(claims *Claims, required models.Role) error {
	if claims == nil {
		return common.ErrorUnauthorized
	}
	if claims.Role != required {
		return common.ErrorForbidden
	}
	return nil
}

type ctxKey struct{}

// WithClaims stores validated claims on ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFromContext returns the claims put there by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok && c != nil
}
