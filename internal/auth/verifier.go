package auth

import (
	"crypto/rsa"
	"errors"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	publicKey *rsa.PublicKey
	issuer    string
}

func NewVerifier(publicKey *rsa.PublicKey, issuer string) *Verifier {
	return &Verifier{publicKey: publicKey, issuer: issuer}
}

// ValidateToken accepts RS256 tokens with a subject and an expiry.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.Role == "" {
		claims.Role = RoleCustomer
	}
	return claims, nil
}
