package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type InMemoryStoreSuite struct {
	StoreContractSuite
}

func TestInMemoryStoreSuite(t *testing.T) {
	s := new(InMemoryStoreSuite)
	s.newStore = func() Store { return NewInMemory() }
	suite.Run(t, s)
}

func TestInMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewInMemory()
	s := &StoreContractSuite{store: st, ctx: ctx}
	s.SetT(t)
	a := s.nextAttestation("GISSUER", "GSUBJECT")
	s.create(a)

	found, err := st.FindByID(ctx, a.ID)
	require.NoError(t, err)
	found.Revoked = true

	again, err := st.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, again.Revoked, "mutating a returned record must not touch stored state")
}

func TestInMemoryRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewInMemory().RunInTx(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
