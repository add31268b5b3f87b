package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hemobank/pkg/domain"
	"hemobank/pkg/requestcontext"
)

const testSigningKey = "test-signing-key"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	validator := NewJWTValidator(testSigningKey)
	personID := id.NewPersonID()

	t.Run("valid token", func(t *testing.T) {
		token := sign(t, testSigningKey, jwt.MapClaims{
			"sub":  personID.String(),
			"role": "staff",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, personID.String(), claims.PersonID)
		assert.Equal(t, requestcontext.RoleStaff, claims.Role)
	})

	t.Run("wrong key", func(t *testing.T) {
		token := sign(t, "other-key", jwt.MapClaims{
			"sub":  personID.String(),
			"role": "donor",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token := sign(t, testSigningKey, jwt.MapClaims{
			"sub":  personID.String(),
			"role": "donor",
			"exp":  time.Now().Add(-time.Minute).Unix(),
		})
		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := sign(t, testSigningKey, jwt.MapClaims{
			"role": "donor",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		_, err := validator.ValidateToken(token)
		assert.ErrorContains(t, err, "no subject")
	})

	t.Run("unknown role", func(t *testing.T) {
		token := sign(t, testSigningKey, jwt.MapClaims{
			"sub":  personID.String(),
			"role": "superuser",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		_, err := validator.ValidateToken(token)
		assert.ErrorContains(t, err, "unknown role")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := validator.ValidateToken("not.a.jwt")
		assert.Error(t, err)
	})
}
