package service

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"

	"trustlink/internal/attestation/identity"
	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
	dErrors "trustlink/pkg/domain-errors"
	"trustlink/pkg/platform/sentinel"
)

// CreateAttestation records a claim by issuer about subject and returns its
// id. The id is derived from (issuer, subject, claimType, now), so the same
// issuer repeating a claim within one second is rejected as a duplicate.
func (s *Service) CreateAttestation(ctx context.Context, issuer, subject id.Address, claimType id.ClaimType, expiration *time.Time) (attestationID id.AttestationID, err error) {
	ctx, done := s.begin(ctx, opCreateAttestation,
		attribute.String("issuer", issuer.String()),
		attribute.String("subject", subject.String()),
		attribute.String("claim_type", string(claimType)))
	defer func() { done(err) }()

	ts := now(ctx)
	var exp *time.Time
	if expiration != nil {
		e := expiration.UTC().Truncate(time.Second)
		exp = &e
	}

	err = s.mutate(ctx, func(u *unit) error {
		if err := requireIssuer(ctx, u, issuer); err != nil {
			return err
		}

		candidate := identity.GenerateID(issuer, subject, claimType, ts)
		if _, err := u.tx.FindByID(ctx, candidate); err == nil {
			return dErrors.New(dErrors.CodeDuplicateAttestation, "attestation already exists")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		a, err := models.NewAttestation(candidate, issuer, subject, claimType, ts, exp)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		if err := u.tx.Create(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeDuplicateAttestation, "attestation already exists")
			}
			return err
		}
		if err := u.tx.AppendIndex(ctx, models.IndexSubject, subject, a.ID); err != nil {
			return err
		}
		if err := u.tx.AppendIndex(ctx, models.IndexIssuer, issuer, a.ID); err != nil {
			return err
		}
		u.emit(models.NewCreatedEvent(a))
		attestationID = a.ID
		return nil
	})
	if err != nil {
		return "", translate(err, "attestation not found")
	}

	s.metrics.IncrementCreated()
	s.logAudit(ctx, "attestation_created",
		"attestation_id", attestationID.String(),
		"issuer", issuer.String(),
		"subject", subject.String(),
		"claim_type", string(claimType))
	return attestationID, nil
}

// RevokeAttestation marks an attestation revoked. Only the issuer that
// created it may revoke it, and only once.
func (s *Service) RevokeAttestation(ctx context.Context, issuer id.Address, attestationID id.AttestationID) (err error) {
	ctx, done := s.begin(ctx, opRevokeAttestation,
		attribute.String("issuer", issuer.String()),
		attribute.String("attestation_id", attestationID.String()))
	defer func() { done(err) }()

	err = s.mutate(ctx, func(u *unit) error {
		a, err := u.tx.FindByID(ctx, attestationID)
		if err != nil {
			return err
		}
		if err := a.CanRevoke(issuer); err != nil {
			return err
		}
		a.ApplyRevocation()
		if err := u.tx.Update(ctx, a); err != nil {
			return err
		}
		u.emit(models.NewRevokedEvent(a.ID, issuer))
		return nil
	})
	if err != nil {
		return translate(err, "attestation not found")
	}

	s.metrics.IncrementRevoked()
	s.logAudit(ctx, "attestation_revoked",
		"attestation_id", attestationID.String(),
		"issuer", issuer.String())
	return nil
}

// GetAttestation returns a snapshot of the stored record.
func (s *Service) GetAttestation(ctx context.Context, attestationID id.AttestationID) (a *models.Attestation, err error) {
	ctx, done := s.begin(ctx, opGetAttestation, attribute.String("attestation_id", attestationID.String()))
	defer func() { done(err) }()

	a, err = s.store.FindByID(ctx, attestationID)
	if err != nil {
		return nil, translate(err, "attestation not found")
	}
	return a, nil
}

// GetAttestationStatus evaluates the attestation against the invocation's
// ledger time.
func (s *Service) GetAttestationStatus(ctx context.Context, attestationID id.AttestationID) (status models.Status, err error) {
	ctx, done := s.begin(ctx, opGetStatus, attribute.String("attestation_id", attestationID.String()))
	defer func() { done(err) }()

	a, err := s.store.FindByID(ctx, attestationID)
	if err != nil {
		return "", translate(err, "attestation not found")
	}
	return a.Status(now(ctx)), nil
}

// HasValidClaim reports whether subject holds at least one valid attestation
// of claimType. It scans the whole subject index and never fails for lack of
// data. Current issuer registration is not re-checked.
func (s *Service) HasValidClaim(ctx context.Context, subject id.Address, claimType id.ClaimType) (ok bool, err error) {
	ctx, done := s.begin(ctx, opHasValidClaim,
		attribute.String("subject", subject.String()),
		attribute.String("claim_type", string(claimType)))
	defer func() { done(err) }()

	ids, err := s.store.ListIndex(ctx, models.IndexSubject, subject, 0, models.Unbounded)
	if err != nil {
		return false, translate(err, "subject index not found")
	}
	if len(ids) == 0 {
		return false, nil
	}
	records, err := s.resolveIndexed(ctx, ids)
	if err != nil {
		return false, translate(err, "attestation not found")
	}
	at := now(ctx)
	return lo.SomeBy(records, func(a *models.Attestation) bool {
		return a.ClaimType == claimType && a.IsValid(at)
	}), nil
}

// resolveIndexed loads the records behind index entries. Entries that no
// longer resolve are skipped rather than failing the whole lookup.
func (s *Service) resolveIndexed(ctx context.Context, ids []id.AttestationID) ([]*models.Attestation, error) {
	records, err := s.store.FindByIDs(ctx, ids)
	if err == nil || !errors.Is(err, sentinel.ErrNotFound) {
		return records, err
	}
	records = make([]*models.Attestation, 0, len(ids))
	for _, attestationID := range ids {
		a, err := s.store.FindByID(ctx, attestationID)
		if errors.Is(err, sentinel.ErrNotFound) {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "index entry does not resolve", "attestation_id", attestationID.String())
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, nil
}

// requireIssuer checks that issuer is authenticated and registered.
func requireIssuer(ctx context.Context, u *unit, issuer id.Address) error {
	if issuer.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "issuer is required")
	}
	ok, err := u.tx.IsIssuer(ctx, issuer)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not a registered issuer")
	}
	return nil
}
