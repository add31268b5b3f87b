package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBloodTypeKnown(t *testing.T) {
	assert.True(t, BloodType{ABO: ABOO, Rh: RhNegative}.Known())
	assert.False(t, BloodType{ABO: ABOUnknown, Rh: RhNegative}.Known())
	assert.False(t, BloodType{ABO: ABOA, Rh: RhUnknown}.Known())
	assert.False(t, BloodType{}.Known())
}

func TestBloodTypeString(t *testing.T) {
	assert.Equal(t, "O-", BloodType{ABO: ABOO, Rh: RhNegative}.String())
	assert.Equal(t, "AB+", BloodType{ABO: ABOAB, Rh: RhPositive}.String())
	assert.Equal(t, "A?", BloodType{ABO: ABOA, Rh: RhUnknown}.String())
	assert.Equal(t, "unknown", BloodType{}.String())
}

func TestParseABOGroup(t *testing.T) {
	for _, raw := range []string{"O", "A", "B", "AB", "unknown"} {
		parsed, err := ParseABOGroup(raw)
		require.NoError(t, err)
		assert.Equal(t, ABOGroup(raw), parsed)
	}

	// Untyped input defaults to unknown rather than failing.
	parsed, err := ParseABOGroup("")
	require.NoError(t, err)
	assert.Equal(t, ABOUnknown, parsed)

	_, err = ParseABOGroup("C")
	assert.Error(t, err)
}

func TestParseRh(t *testing.T) {
	for _, raw := range []string{"+", "-", "unknown"} {
		parsed, err := ParseRh(raw)
		require.NoError(t, err)
		assert.Equal(t, Rh(raw), parsed)
	}

	parsed, err := ParseRh("")
	require.NoError(t, err)
	assert.Equal(t, RhUnknown, parsed)

	_, err = ParseRh("positive")
	assert.Error(t, err)
}

func TestShelfLives(t *testing.T) {
	assert.Equal(t, 35*24*time.Hour, ComponentWholeBlood.ShelfLife())
	assert.Equal(t, 42*24*time.Hour, ComponentRedCells.ShelfLife())
	assert.Equal(t, 365*24*time.Hour, ComponentPlasma.ShelfLife())
	assert.Equal(t, 5*24*time.Hour, ComponentPlatelets.ShelfLife())
}

func TestParseComponent(t *testing.T) {
	for _, component := range Components() {
		parsed, err := ParseComponent(string(component))
		require.NoError(t, err)
		assert.Equal(t, component, parsed)
	}

	_, err := ParseComponent("cryoprecipitate")
	assert.Error(t, err)
}
