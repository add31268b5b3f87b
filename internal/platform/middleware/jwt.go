package middleware

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"hemobank/pkg/requestcontext"
)

// JWTValidator validates HMAC-signed tokens minted by the external identity
// provider.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	switch role := requestcontext.Role(claims.Role); role {
	case requestcontext.RoleDonor, requestcontext.RolePartner, requestcontext.RoleStaff:
		return &Claims{PersonID: claims.Subject, Role: role}, nil
	default:
		return nil, fmt.Errorf("unknown role claim: %q", claims.Role)
	}
}
