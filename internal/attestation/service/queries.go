package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
)

// GetSubjectAttestations returns up to limit records about subject starting
// at start, in creation order. There is no server-side cap on limit.
func (s *Service) GetSubjectAttestations(ctx context.Context, subject id.Address, start, limit uint32) (page []*models.Attestation, err error) {
	ctx, done := s.begin(ctx, opSubjectPage,
		attribute.String("subject", subject.String()),
		attribute.Int64("start", int64(start)),
		attribute.Int64("limit", int64(limit)))
	defer func() { done(err) }()

	return s.page(ctx, models.IndexSubject, subject, start, limit)
}

// GetIssuerAttestations returns up to limit records created by issuer
// starting at start, in creation order. Records stay listed after the issuer
// is removed or the record is revoked.
func (s *Service) GetIssuerAttestations(ctx context.Context, issuer id.Address, start, limit uint32) (page []*models.Attestation, err error) {
	ctx, done := s.begin(ctx, opIssuerPage,
		attribute.String("issuer", issuer.String()),
		attribute.Int64("start", int64(start)),
		attribute.Int64("limit", int64(limit)))
	defer func() { done(err) }()

	return s.page(ctx, models.IndexIssuer, issuer, start, limit)
}

func (s *Service) page(ctx context.Context, kind models.IndexKind, owner id.Address, start, limit uint32) ([]*models.Attestation, error) {
	if limit == 0 {
		return []*models.Attestation{}, nil
	}
	ids, err := s.store.ListIndex(ctx, kind, owner, int(start), int(limit))
	if err != nil {
		return nil, translate(err, "index not found")
	}
	if len(ids) == 0 {
		return []*models.Attestation{}, nil
	}
	records, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, translate(err, "attestation not found")
	}
	return records, nil
}
