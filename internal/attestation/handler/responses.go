package handler

import (
	"github.com/samber/lo"

	"trustlink/internal/attestation/models"
)

type AdminResponse struct {
	Admin string `json:"admin"`
}

type IssuerResponse struct {
	Address    string `json:"address"`
	Registered bool   `json:"registered"`
}

type CreateAttestationResponse struct {
	ID string `json:"id"`
}

type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ClaimResponse struct {
	Subject   string `json:"subject"`
	ClaimType string `json:"claim_type"`
	Valid     bool   `json:"valid"`
}

// AttestationResponse is the stored record on the wire. Times are unix
// seconds. Derived status is served by the status endpoint only.
type AttestationResponse struct {
	ID         string `json:"id"`
	Issuer     string `json:"issuer"`
	Subject    string `json:"subject"`
	ClaimType  string `json:"claim_type"`
	Timestamp  int64  `json:"timestamp"`
	Expiration *int64 `json:"expiration,omitempty"`
	Revoked    bool   `json:"revoked"`
}

type PageResponse struct {
	Attestations []AttestationResponse `json:"attestations"`
	Start        uint32                `json:"start"`
	Limit        uint32                `json:"limit"`
	Count        int                   `json:"count"`
}

// FromAttestation maps a record to its wire form.
func FromAttestation(a *models.Attestation) AttestationResponse {
	resp := AttestationResponse{
		ID:        a.ID.String(),
		Issuer:    a.Issuer.String(),
		Subject:   a.Subject.String(),
		ClaimType: string(a.ClaimType),
		Timestamp: a.Timestamp.Unix(),
		Revoked:   a.Revoked,
	}
	if a.Expiration != nil {
		exp := a.Expiration.Unix()
		resp.Expiration = &exp
	}
	return resp
}

// FromPage maps a page of records, preserving order.
func FromPage(records []*models.Attestation, start, limit uint32) PageResponse {
	items := lo.Map(records, func(a *models.Attestation, _ int) AttestationResponse {
		return FromAttestation(a)
	})
	return PageResponse{
		Attestations: items,
		Start:        start,
		Limit:        limit,
		Count:        len(items),
	}
}
