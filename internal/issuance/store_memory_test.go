package issuance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

func record() *Record {
	return &Record{
		ID:        id.NewIssuanceID(),
		RequestID: id.NewRequestID(),
		UnitID:    id.NewUnitID(),
		StaffID:   id.NewPersonID(),
		IssuedAt:  time.Now().UTC(),
	}
}

func TestAppendAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	rec := record()

	require.NoError(t, store.Append(ctx, rec))

	byRequest, err := store.GetByRequest(ctx, rec.RequestID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byRequest.ID)

	byUnit, err := store.GetByUnit(ctx, rec.UnitID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byUnit.ID)

	_, err = store.GetByUnit(ctx, id.NewUnitID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAppendRejectsDuplicateUnit(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	rec := record()
	require.NoError(t, store.Append(ctx, rec))

	// Same unit under a different request: the log is the last line of
	// defense against double issuance.
	dupe := record()
	dupe.UnitID = rec.UnitID
	assert.ErrorIs(t, store.Append(ctx, dupe), sentinel.ErrConflict)
}
