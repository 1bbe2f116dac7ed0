package handler

import (
	"strings"
	"time"

	id "trustlink/pkg/domain"
	dErrors "trustlink/pkg/domain-errors"
)

// CreateAttestationRequest is the body of POST /attestations.
type CreateAttestationRequest struct {
	Subject string `json:"subject"`
	// ClaimType is any label the issuer chooses, the empty string included.
	ClaimType string `json:"claim_type"`
	// Expiration is unix seconds; omitted means the claim never expires.
	Expiration *int64 `json:"expiration,omitempty"`

	parsedSubject    id.Address
	parsedExpiration *time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateAttestationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Subject = strings.TrimSpace(r.Subject)
	subject, err := id.ParseAddress(r.Subject)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "subject is invalid")
	}
	r.parsedSubject = subject

	if r.Expiration != nil {
		if *r.Expiration < 0 {
			return dErrors.New(dErrors.CodeValidation, "expiration must be a unix timestamp")
		}
		exp := time.Unix(*r.Expiration, 0).UTC()
		r.parsedExpiration = &exp
	}
	return nil
}

// ParsedSubject returns the validated subject.
func (r *CreateAttestationRequest) ParsedSubject() id.Address {
	return r.parsedSubject
}

func (r *CreateAttestationRequest) ParsedClaimType() id.ClaimType {
	return id.ClaimType(r.ClaimType)
}

// ParsedExpiration returns nil when the request has no expiration.
func (r *CreateAttestationRequest) ParsedExpiration() *time.Time {
	return r.parsedExpiration
}
