// Package auth verifies the bearer tokens minted by the chat transport. The
// engine never issues tokens; it only checks signature, issuer and expiry and
// exposes the actor id and role to handlers.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Claims carries the actor in Subject: a numeric admin id or a customer chat id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenValidator is implemented by Verifier.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type ctxKey string

const contextRoleKey ctxKey = "actorRole"

func ContextWithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, contextRoleKey, role)
}

func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(contextRoleKey).(string); ok {
		return role
	}
	return ""
}
