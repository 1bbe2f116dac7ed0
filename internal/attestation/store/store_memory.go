package store

import (
	"context"
	"sync"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
	"trustlink/pkg/platform/sentinel"
)

type indexKey struct {
	kind  models.IndexKind
	owner id.Address
}

// InMemory keeps the registry in process memory. RunInTx holds the write lock
// for the whole unit and stages writes in an overlay, so a failed unit leaves
// no trace.
type InMemory struct {
	mu           sync.RWMutex
	admin        id.Address
	issuers      map[id.Address]struct{}
	attestations map[id.AttestationID]*models.Attestation
	indexes      map[indexKey][]id.AttestationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		issuers:      make(map[id.Address]struct{}),
		attestations: make(map[id.AttestationID]*models.Attestation),
		indexes:      make(map[indexKey][]id.AttestationID),
	}
}

func (s *InMemory) Admin(_ context.Context) (id.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminLocked()
}

func (s *InMemory) IsIssuer(_ context.Context, address id.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.issuers[address]
	return ok, nil
}

func (s *InMemory) FindByID(_ context.Context, attestationID id.AttestationID) (*models.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(attestationID)
}

func (s *InMemory) FindByIDs(_ context.Context, ids []id.AttestationID) ([]*models.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Attestation, 0, len(ids))
	for _, attestationID := range ids {
		a, err := s.findLocked(attestationID)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *InMemory) ListIndex(_ context.Context, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.indexes[indexKey{kind, owner}], nil, start, limit), nil
}

func (s *InMemory) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		base:         s,
		issuers:      make(map[id.Address]bool),
		attestations: make(map[id.AttestationID]*models.Attestation),
		appended:     make(map[indexKey][]id.AttestationID),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	for _, hook := range tx.hooks {
		hook()
	}
	return nil
}

func (s *InMemory) adminLocked() (id.Address, error) {
	if s.admin.IsNil() {
		return "", sentinel.ErrNotFound
	}
	return s.admin, nil
}

func (s *InMemory) findLocked(attestationID id.AttestationID) (*models.Attestation, error) {
	a, ok := s.attestations[attestationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// memoryTx reads through its staged writes to the committed state. The
// parent store's write lock is held for the lifetime of the tx.
type memoryTx struct {
	base         *InMemory
	admin        id.Address
	issuers      map[id.Address]bool
	attestations map[id.AttestationID]*models.Attestation
	appended     map[indexKey][]id.AttestationID
	hooks        []func()
}

func (t *memoryTx) Admin(_ context.Context) (id.Address, error) {
	if !t.admin.IsNil() {
		return t.admin, nil
	}
	return t.base.adminLocked()
}

func (t *memoryTx) IsIssuer(_ context.Context, address id.Address) (bool, error) {
	if present, ok := t.issuers[address]; ok {
		return present, nil
	}
	_, ok := t.base.issuers[address]
	return ok, nil
}

func (t *memoryTx) FindByID(_ context.Context, attestationID id.AttestationID) (*models.Attestation, error) {
	if a, ok := t.attestations[attestationID]; ok {
		return a.Clone(), nil
	}
	return t.base.findLocked(attestationID)
}

func (t *memoryTx) FindByIDs(ctx context.Context, ids []id.AttestationID) ([]*models.Attestation, error) {
	out := make([]*models.Attestation, 0, len(ids))
	for _, attestationID := range ids {
		a, err := t.FindByID(ctx, attestationID)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *memoryTx) ListIndex(_ context.Context, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error) {
	key := indexKey{kind, owner}
	return page(t.base.indexes[key], t.appended[key], start, limit), nil
}

func (t *memoryTx) SetAdmin(_ context.Context, admin id.Address) error {
	t.admin = admin
	return nil
}

func (t *memoryTx) AddIssuer(_ context.Context, address id.Address) error {
	t.issuers[address] = true
	return nil
}

func (t *memoryTx) RemoveIssuer(_ context.Context, address id.Address) error {
	t.issuers[address] = false
	return nil
}

func (t *memoryTx) Create(ctx context.Context, attestation *models.Attestation) error {
	if _, err := t.FindByID(ctx, attestation.ID); err == nil {
		return sentinel.ErrAlreadyUsed
	}
	t.attestations[attestation.ID] = attestation.Clone()
	return nil
}

func (t *memoryTx) Update(ctx context.Context, attestation *models.Attestation) error {
	if _, err := t.FindByID(ctx, attestation.ID); err != nil {
		return err
	}
	t.attestations[attestation.ID] = attestation.Clone()
	return nil
}

func (t *memoryTx) AppendIndex(_ context.Context, kind models.IndexKind, owner id.Address, attestationID id.AttestationID) error {
	key := indexKey{kind, owner}
	t.appended[key] = append(t.appended[key], attestationID)
	return nil
}

func (t *memoryTx) OnCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

func (t *memoryTx) commit() {
	s := t.base
	if !t.admin.IsNil() {
		s.admin = t.admin
	}
	for address, present := range t.issuers {
		if present {
			s.issuers[address] = struct{}{}
		} else {
			delete(s.issuers, address)
		}
	}
	for attestationID, a := range t.attestations {
		s.attestations[attestationID] = a
	}
	for key, ids := range t.appended {
		s.indexes[key] = append(s.indexes[key], ids...)
	}
}

// page windows the concatenation of committed and staged index entries.
func page(committed, staged []id.AttestationID, start, limit int) []id.AttestationID {
	n := len(committed) + len(staged)
	lo, hi := models.Window(n, start, limit)
	out := make([]id.AttestationID, 0, hi-lo)
	for i := lo; i < hi; i++ {
		if i < len(committed) {
			out = append(out, committed[i])
		} else {
			out = append(out, staged[i-len(committed)])
		}
	}
	return out
}
