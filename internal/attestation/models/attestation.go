package models

import (
	"time"

	id "trustlink/pkg/domain"
	dErrors "trustlink/pkg/domain-errors"
)

// Attestation is a claim published by an issuer about a subject.
//
// Invariants:
//   - ID, Issuer, Subject, ClaimType, Timestamp and Expiration are immutable
//   - Revoked only moves false -> true
//   - records are never deleted; revocation is the only "removal"
//
// Expiry is never stored. It is recomputed against the caller's clock on
// every read via Status.
type Attestation struct {
	ID         id.AttestationID `json:"id"`
	Issuer     id.Address       `json:"issuer"`
	Subject    id.Address       `json:"subject"`
	ClaimType  id.ClaimType     `json:"claim_type"`
	Timestamp  time.Time        `json:"timestamp"`
	Expiration *time.Time       `json:"expiration,omitempty"`
	Revoked    bool             `json:"revoked"`
}

// NewAttestation builds an active attestation. The caller supplies the id so
// that identity derivation stays in one place.
func NewAttestation(attestationID id.AttestationID, issuer, subject id.Address, claimType id.ClaimType, timestamp time.Time, expiration *time.Time) (*Attestation, error) {
	if attestationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "attestation id cannot be empty")
	}
	if issuer.IsNil() || subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "issuer and subject are required")
	}
	var exp *time.Time
	if expiration != nil {
		e := expiration.UTC()
		exp = &e
	}
	return &Attestation{
		ID:         attestationID,
		Issuer:     issuer,
		Subject:    subject,
		ClaimType:  claimType,
		Timestamp:  timestamp.UTC(),
		Expiration: exp,
		Revoked:    false,
	}, nil
}

// Status evaluates the attestation at now. Revocation wins over expiry.
func (a *Attestation) Status(now time.Time) Status {
	if a.Revoked {
		return StatusRevoked
	}
	if a.IsExpired(now) {
		return StatusExpired
	}
	return StatusValid
}

// IsExpired reports whether now is at or past the expiration instant.
func (a *Attestation) IsExpired(now time.Time) bool {
	return a.Expiration != nil && !now.Before(*a.Expiration)
}

// IsValid is shorthand for Status(now) == StatusValid.
func (a *Attestation) IsValid(now time.Time) bool {
	return a.Status(now) == StatusValid
}

// CanRevoke checks that caller owns the attestation and that it is not yet
// revoked. Ownership is checked first so non-owners learn nothing about the
// revocation state.
func (a *Attestation) CanRevoke(caller id.Address) error {
	if a.Issuer != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the issuing address can revoke an attestation")
	}
	if a.Revoked {
		return dErrors.New(dErrors.CodeAlreadyRevoked, "attestation already revoked")
	}
	return nil
}

// ApplyRevocation flips the revoked flag. Call CanRevoke first.
func (a *Attestation) ApplyRevocation() {
	a.Revoked = true
}

// Clone returns a deep copy so callers can never mutate stored state.
func (a *Attestation) Clone() *Attestation {
	if a == nil {
		return nil
	}
	c := *a
	if a.Expiration != nil {
		e := *a.Expiration
		c.Expiration = &e
	}
	return &c
}
