package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hemobank/pkg/domain-errors"
)

func TestParsePersonID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		raw := uuid.NewString()
		parsed, err := ParsePersonID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
		assert.False(t, parsed.IsNil())
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParsePersonID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParsePersonID("not-a-uuid")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("nil uuid", func(t *testing.T) {
		_, err := ParsePersonID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestTypedIDsAreDistinct(t *testing.T) {
	// Fresh IDs never collide with the nil value and survive a round trip
	// through their string form.
	unitID := NewUnitID()
	require.False(t, unitID.IsNil())
	parsed, err := ParseUnitID(unitID.String())
	require.NoError(t, err)
	assert.Equal(t, unitID, parsed)

	requestID := NewRequestID()
	parsedReq, err := ParseRequestID(requestID.String())
	require.NoError(t, err)
	assert.Equal(t, requestID, parsedReq)
}
