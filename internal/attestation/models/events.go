package models

import (
	"time"

	id "trustlink/pkg/domain"
)

// EventKind tags a lifecycle notification.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventRevoked EventKind = "revoked"
)

// Event is a lifecycle notification for off-chain consumers. Created events
// are keyed by subject and revoked events by issuer.
type Event struct {
	Kind          EventKind        `json:"kind"`
	Key           id.Address       `json:"key"`
	AttestationID id.AttestationID `json:"id"`
	Issuer        id.Address       `json:"issuer,omitempty"`
	ClaimType     id.ClaimType     `json:"claim_type,omitempty"`
	Timestamp     *time.Time       `json:"timestamp,omitempty"`
}

// NewCreatedEvent carries (id, issuer, claim_type, timestamp), keyed by subject.
func NewCreatedEvent(a *Attestation) Event {
	ts := a.Timestamp
	return Event{
		Kind:          EventCreated,
		Key:           a.Subject,
		AttestationID: a.ID,
		Issuer:        a.Issuer,
		ClaimType:     a.ClaimType,
		Timestamp:     &ts,
	}
}

// NewRevokedEvent carries only the id, keyed by the revoking issuer.
func NewRevokedEvent(attestationID id.AttestationID, issuer id.Address) Event {
	return Event{
		Kind:          EventRevoked,
		Key:           issuer,
		AttestationID: attestationID,
	}
}
