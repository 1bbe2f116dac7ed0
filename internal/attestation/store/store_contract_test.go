package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
	"trustlink/pkg/platform/sentinel"
)

// StoreContractSuite is the behaviour every backend must share. Backend test
// files embed it and provide newStore.
type StoreContractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
	seq      int
}

func (s *StoreContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func (s *StoreContractSuite) nextAttestation(issuer, subject id.Address) *models.Attestation {
	s.seq++
	attestationID := id.AttestationID(fmt.Sprintf("%064x", s.seq))
	a, err := models.NewAttestation(attestationID, issuer, subject, "KYC_PASSED", time.Unix(1700000000+int64(s.seq), 0), nil)
	s.Require().NoError(err)
	return a
}

func (s *StoreContractSuite) create(a *models.Attestation) {
	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.Create(s.ctx, a); err != nil {
			return err
		}
		if err := tx.AppendIndex(s.ctx, models.IndexSubject, a.Subject, a.ID); err != nil {
			return err
		}
		return tx.AppendIndex(s.ctx, models.IndexIssuer, a.Issuer, a.ID)
	})
	s.Require().NoError(err)
}

// TestAdminSingleton verifies the admin key is unset until written.
func (s *StoreContractSuite) TestAdminSingleton() {
	_, err := s.store.Admin(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.RunInTx(s.ctx, func(tx Tx) error {
		return tx.SetAdmin(s.ctx, "GADMIN")
	}))

	admin, err := s.store.Admin(s.ctx)
	s.Require().NoError(err)
	s.Equal(id.Address("GADMIN"), admin)
}

// TestIssuerSet verifies idempotent add and remove.
func (s *StoreContractSuite) TestIssuerSet() {
	s.Require().NoError(s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.AddIssuer(s.ctx, "GISSUER"); err != nil {
			return err
		}
		return tx.AddIssuer(s.ctx, "GISSUER")
	}))
	ok, err := s.store.IsIssuer(s.ctx, "GISSUER")
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.RemoveIssuer(s.ctx, "GISSUER"); err != nil {
			return err
		}
		return tx.RemoveIssuer(s.ctx, "GNEVER")
	}))
	ok, err = s.store.IsIssuer(s.ctx, "GISSUER")
	s.Require().NoError(err)
	s.False(ok)
}

// TestAttestationRecords verifies create, lookup, duplicate and update semantics.
func (s *StoreContractSuite) TestAttestationRecords() {
	s.Run("creates and finds by id", func() {
		exp := time.Unix(1800000000, 0).UTC()
		a := s.nextAttestation("GISSUER", "GSUBJECT")
		a.Expiration = &exp
		s.create(a)

		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(a.Issuer, found.Issuer)
		s.Equal(a.Subject, found.Subject)
		s.Equal(a.ClaimType, found.ClaimType)
		s.True(a.Timestamp.Equal(found.Timestamp))
		s.Require().NotNil(found.Expiration)
		s.True(exp.Equal(*found.Expiration))
		s.False(found.Revoked)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.AttestationID(fmt.Sprintf("%064x", 999999)))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate create", func() {
		a := s.nextAttestation("GISSUER", "GSUBJECT")
		s.create(a)
		err := s.store.RunInTx(s.ctx, func(tx Tx) error {
			return tx.Create(s.ctx, a)
		})
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("update persists revocation", func() {
		a := s.nextAttestation("GISSUER", "GSUBJECT")
		s.create(a)
		a.ApplyRevocation()
		s.Require().NoError(s.store.RunInTx(s.ctx, func(tx Tx) error {
			return tx.Update(s.ctx, a)
		}))
		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.True(found.Revoked)
	})

	s.Run("update of missing record returns ErrNotFound", func() {
		a := s.nextAttestation("GISSUER", "GSUBJECT")
		err := s.store.RunInTx(s.ctx, func(tx Tx) error {
			return tx.Update(s.ctx, a)
		})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestIndexOrderingAndPaging verifies insertion order and window edges.
func (s *StoreContractSuite) TestIndexOrderingAndPaging() {
	var created []id.AttestationID
	for i := 0; i < 5; i++ {
		a := s.nextAttestation("GISSUER", "GPAGED")
		s.create(a)
		created = append(created, a.ID)
	}

	all, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GPAGED", 0, models.Unbounded)
	s.Require().NoError(err)
	s.Equal(created, all)

	page, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GPAGED", 2, 2)
	s.Require().NoError(err)
	s.Equal(created[2:4], page)

	tail, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GPAGED", 4, 2)
	s.Require().NoError(err)
	s.Equal(created[4:], tail)

	beyond, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GPAGED", 5, 2)
	s.Require().NoError(err)
	s.Empty(beyond)

	zero, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GPAGED", 0, 0)
	s.Require().NoError(err)
	s.Empty(zero)

	byIssuer, err := s.store.ListIndex(s.ctx, models.IndexIssuer, "GISSUER", 0, models.Unbounded)
	s.Require().NoError(err)
	s.Equal(created, byIssuer)

	records, err := s.store.FindByIDs(s.ctx, created[1:3])
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(created[1], records[0].ID)
	s.Equal(created[2], records[1].ID)
}

// TestRollback verifies that a failing unit leaves no writes behind.
func (s *StoreContractSuite) TestRollback() {
	boom := errors.New("boom")
	a := s.nextAttestation("GISSUER", "GROLLBACK")

	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.SetAdmin(s.ctx, "GADMIN"); err != nil {
			return err
		}
		if err := tx.AddIssuer(s.ctx, "GISSUER"); err != nil {
			return err
		}
		if err := tx.Create(s.ctx, a); err != nil {
			return err
		}
		if err := tx.AppendIndex(s.ctx, models.IndexSubject, a.Subject, a.ID); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.Admin(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
	ok, err := s.store.IsIssuer(s.ctx, "GISSUER")
	s.Require().NoError(err)
	s.False(ok)
	_, err = s.store.FindByID(s.ctx, a.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	ids, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GROLLBACK", 0, models.Unbounded)
	s.Require().NoError(err)
	s.Empty(ids)
}

// TestTxReadsOwnWrites verifies staged writes are visible inside the unit.
func (s *StoreContractSuite) TestTxReadsOwnWrites() {
	a := s.nextAttestation("GISSUER", "GOWN")
	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		if err := tx.AddIssuer(s.ctx, "GISSUER"); err != nil {
			return err
		}
		ok, err := tx.IsIssuer(s.ctx, "GISSUER")
		if err != nil {
			return err
		}
		s.True(ok)
		if err := tx.Create(s.ctx, a); err != nil {
			return err
		}
		found, err := tx.FindByID(s.ctx, a.ID)
		if err != nil {
			return err
		}
		s.Equal(a.ID, found.ID)
		return nil
	})
	s.Require().NoError(err)
}

// TestConcurrentCreateOfSameID verifies exactly one writer wins.
func (s *StoreContractSuite) TestConcurrentCreateOfSameID() {
	a := s.nextAttestation("GISSUER", "GRACE")
	const writers = 8

	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.RunInTx(s.ctx, func(tx Tx) error {
				if _, err := tx.FindByID(s.ctx, a.ID); err == nil {
					return sentinel.ErrAlreadyUsed
				}
				if err := tx.Create(s.ctx, a); err != nil {
					return err
				}
				return tx.AppendIndex(s.ctx, models.IndexSubject, a.Subject, a.ID)
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrConflict):
			dup++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, ok)
	s.Equal(writers-1, dup)

	ids, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GRACE", 0, models.Unbounded)
	s.Require().NoError(err)
	s.Len(ids, 1, "index must not record the losing writers")
}

// TestCommitHooks verifies hooks run once, after commit, and never for a
// unit that rolls back.
func (s *StoreContractSuite) TestCommitHooks() {
	var fired []string
	boom := errors.New("boom")

	err := s.store.RunInTx(s.ctx, func(tx Tx) error {
		tx.OnCommit(func() { fired = append(fired, "rolled back") })
		if err := tx.AddIssuer(s.ctx, "GHOOK"); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)
	s.Empty(fired)

	err = s.store.RunInTx(s.ctx, func(tx Tx) error {
		tx.OnCommit(func() { fired = append(fired, "first") })
		tx.OnCommit(func() { fired = append(fired, "second") })
		return tx.AddIssuer(s.ctx, "GHOOK")
	})
	s.Require().NoError(err)
	s.Equal([]string{"first", "second"}, fired)
}

// TestConcurrentAppendsKeepCommitOrder verifies that racing units appending
// to one index all land, at distinct positions, in the order their commit
// hooks fired.
func (s *StoreContractSuite) TestConcurrentAppendsKeepCommitOrder() {
	const writers = 4
	records := make([]*models.Attestation, writers)
	for i := range records {
		records[i] = s.nextAttestation(id.Address(fmt.Sprintf("GISSUER%d", i)), "GSHARED")
	}

	var (
		mu    sync.Mutex
		order []id.AttestationID
		wg    sync.WaitGroup
	)
	errs := make(chan error, writers)
	for _, a := range records {
		wg.Add(1)
		go func(a *models.Attestation) {
			defer wg.Done()
			errs <- s.store.RunInTx(s.ctx, func(tx Tx) error {
				if err := tx.Create(s.ctx, a); err != nil {
					return err
				}
				if err := tx.AppendIndex(s.ctx, models.IndexSubject, a.Subject, a.ID); err != nil {
					return err
				}
				tx.OnCommit(func() {
					mu.Lock()
					order = append(order, a.ID)
					mu.Unlock()
				})
				return nil
			})
		}(a)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	ids, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GSHARED", 0, models.Unbounded)
	s.Require().NoError(err)
	s.Require().Len(ids, writers)
	s.Equal(order, ids)

	tail, err := s.store.ListIndex(s.ctx, models.IndexSubject, "GSHARED", writers-1, 1)
	s.Require().NoError(err)
	s.Equal(ids[writers-1:], tail)
}
