package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	id "trustlink/pkg/domain"
	dErrors "trustlink/pkg/domain-errors"
	"trustlink/pkg/platform/sentinel"
)

// Initialize sets the administrator. It succeeds exactly once.
func (s *Service) Initialize(ctx context.Context, admin id.Address) (err error) {
	ctx, done := s.begin(ctx, opInitialize, attribute.String("admin", admin.String()))
	defer func() { done(err) }()

	if admin.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "admin address is required")
	}
	err = s.mutate(ctx, func(u *unit) error {
		_, err := u.tx.Admin(ctx)
		switch {
		case err == nil:
			return dErrors.New(dErrors.CodeAlreadyInitialized, "registry already initialized")
		case !errors.Is(err, sentinel.ErrNotFound):
			return err
		}
		return u.tx.SetAdmin(ctx, admin)
	})
	if err != nil {
		return translate(err, "admin not found")
	}
	s.logAudit(ctx, "registry_initialized", "admin", admin.String())
	return nil
}

// GetAdmin returns the administrator, or NotInitialized.
func (s *Service) GetAdmin(ctx context.Context) (admin id.Address, err error) {
	ctx, done := s.begin(ctx, opGetAdmin)
	defer func() { done(err) }()

	admin, err = s.store.Admin(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotInitialized, "registry not initialized")
	}
	if err != nil {
		return "", translate(err, "admin not found")
	}
	return admin, nil
}

// RegisterIssuer adds issuer to the issuer set. Only the administrator may
// call it; registering an existing issuer is a no-op.
func (s *Service) RegisterIssuer(ctx context.Context, caller, issuer id.Address) (err error) {
	ctx, done := s.begin(ctx, opRegisterIssuer,
		attribute.String("caller", caller.String()),
		attribute.String("issuer", issuer.String()))
	defer func() { done(err) }()

	err = s.mutate(ctx, func(u *unit) error {
		if err := requireAdmin(ctx, u, caller); err != nil {
			return err
		}
		return u.tx.AddIssuer(ctx, issuer)
	})
	if err != nil {
		return translate(err, "issuer not found")
	}
	s.logAudit(ctx, "issuer_registered", "admin", caller.String(), "issuer", issuer.String())
	return nil
}

// RemoveIssuer drops issuer from the issuer set. Attestations it already
// created are untouched.
func (s *Service) RemoveIssuer(ctx context.Context, caller, issuer id.Address) (err error) {
	ctx, done := s.begin(ctx, opRemoveIssuer,
		attribute.String("caller", caller.String()),
		attribute.String("issuer", issuer.String()))
	defer func() { done(err) }()

	err = s.mutate(ctx, func(u *unit) error {
		if err := requireAdmin(ctx, u, caller); err != nil {
			return err
		}
		return u.tx.RemoveIssuer(ctx, issuer)
	})
	if err != nil {
		return translate(err, "issuer not found")
	}
	s.logAudit(ctx, "issuer_removed", "admin", caller.String(), "issuer", issuer.String())
	return nil
}

// IsIssuer reports issuer-set membership.
func (s *Service) IsIssuer(ctx context.Context, address id.Address) (ok bool, err error) {
	ctx, done := s.begin(ctx, opIsIssuer, attribute.String("address", address.String()))
	defer func() { done(err) }()

	ok, err = s.store.IsIssuer(ctx, address)
	if err != nil {
		return false, translate(err, "issuer not found")
	}
	return ok, nil
}

// requireAdmin fails closed: an unset administrator is NotInitialized.
func requireAdmin(ctx context.Context, u *unit, caller id.Address) error {
	admin, err := u.tx.Admin(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotInitialized, "registry not initialized")
	}
	if err != nil {
		return err
	}
	if caller.IsNil() || caller != admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrator")
	}
	return nil
}
