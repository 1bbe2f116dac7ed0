// Package store persists the registry: the administrator singleton, the
// issuer set, attestation records and the two append-only indexes.
//
// Every backend implements the same logical key space
// (Admin, Issuer(address), Attestation(id), SubjectIndex(address),
// IssuerIndex(address)) and the same transactional contract: RunInTx applies
// all writes made through the Tx when fn returns nil and none of them
// otherwise. No backend attaches a TTL to registry data.
package store

import (
	"context"
	"time"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
)

// Reader is the read side shared by stores and transactions.
type Reader interface {
	// Admin returns the administrator or sentinel.ErrNotFound when unset.
	Admin(ctx context.Context) (id.Address, error)
	IsIssuer(ctx context.Context, address id.Address) (bool, error)
	// FindByID returns a copy of the record or sentinel.ErrNotFound.
	FindByID(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error)
	// FindByIDs resolves ids in order. A missing id yields sentinel.ErrNotFound.
	FindByIDs(ctx context.Context, ids []id.AttestationID) ([]*models.Attestation, error)
	// ListIndex returns at most limit ids from start in insertion order;
	// models.Unbounded reads to the end.
	ListIndex(ctx context.Context, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error)
}

// Tx is a unit of work. Writes become visible to other callers only when the
// enclosing RunInTx commits.
type Tx interface {
	Reader
	SetAdmin(ctx context.Context, admin id.Address) error
	AddIssuer(ctx context.Context, address id.Address) error
	RemoveIssuer(ctx context.Context, address id.Address) error
	// Create inserts a new record; sentinel.ErrAlreadyUsed if the id exists.
	Create(ctx context.Context, attestation *models.Attestation) error
	// Update overwrites an existing record; sentinel.ErrNotFound if absent.
	Update(ctx context.Context, attestation *models.Attestation) error
	AppendIndex(ctx context.Context, kind models.IndexKind, owner id.Address, attestationID id.AttestationID) error
	// OnCommit registers fn to run once this unit has committed. Hooks run in
	// registration order, and hooks of different units run in the order their
	// units committed within this process. They are discarded when the unit
	// rolls back or is retried. A hook must not block or call back into the
	// store.
	OnCommit(fn func())
}

// Store is a registry backend.
type Store interface {
	Reader
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Retry bounds for optimistic backends.
const (
	defaultMaxRetries   = 5
	defaultRetryBackoff = 10 * time.Millisecond
)
