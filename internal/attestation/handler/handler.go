package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
	dErrors "trustlink/pkg/domain-errors"
	"trustlink/pkg/platform/httputil"
	authmw "trustlink/pkg/platform/middleware/auth"
	"trustlink/pkg/requestcontext"
)

// DefaultPageLimit applies when a list request omits limit.
const DefaultPageLimit = 10

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, admin id.Address) error
	GetAdmin(ctx context.Context) (id.Address, error)
	RegisterIssuer(ctx context.Context, caller, issuer id.Address) error
	RemoveIssuer(ctx context.Context, caller, issuer id.Address) error
	IsIssuer(ctx context.Context, address id.Address) (bool, error)
	CreateAttestation(ctx context.Context, issuer, subject id.Address, claimType id.ClaimType, expiration *time.Time) (id.AttestationID, error)
	RevokeAttestation(ctx context.Context, issuer id.Address, attestationID id.AttestationID) error
	GetAttestation(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error)
	GetAttestationStatus(ctx context.Context, attestationID id.AttestationID) (models.Status, error)
	HasValidClaim(ctx context.Context, subject id.Address, claimType id.ClaimType) (bool, error)
	GetSubjectAttestations(ctx context.Context, subject id.Address, start, limit uint32) ([]*models.Attestation, error)
	GetIssuerAttestations(ctx context.Context, issuer id.Address, start, limit uint32) ([]*models.Attestation, error)
}

// Handler wires registry endpoints to the service.
type Handler struct {
	service   Service
	validator authmw.JWTValidator
	logger    *slog.Logger
}

// New constructs a registry handler.
func New(service Service, validator authmw.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the registry endpoints. Mutations require a bearer token;
// reads accept one but do not need it.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(h.validator, h.logger))
		r.Post("/registry/initialize", h.HandleInitialize)
		r.Put("/issuers/{address}", h.HandleRegisterIssuer)
		r.Delete("/issuers/{address}", h.HandleRemoveIssuer)
		r.Post("/attestations", h.HandleCreateAttestation)
		r.Post("/attestations/{id}/revoke", h.HandleRevokeAttestation)
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(h.validator, h.logger))
		r.Get("/registry/admin", h.HandleGetAdmin)
		r.Get("/issuers/{address}", h.HandleIsIssuer)
		r.Get("/issuers/{address}/attestations", h.HandleIssuerAttestations)
		r.Get("/attestations/{id}", h.HandleGetAttestation)
		r.Get("/attestations/{id}/status", h.HandleGetStatus)
		r.Get("/subjects/{address}/attestations", h.HandleSubjectAttestations)
		r.Get("/subjects/{address}/claims", h.HandleHasValidClaim)
		r.Get("/subjects/{address}/claims/{claimType}", h.HandleHasValidClaim)
	})
}

// HandleInitialize handles POST /registry/initialize. The authenticated
// caller becomes the administrator.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(ctx, w)
	if !ok {
		return
	}

	if err := h.service.Initialize(ctx, caller); err != nil {
		h.fail(ctx, w, "initialize failed", err, "caller", caller.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, AdminResponse{Admin: caller.String()})
}

// HandleGetAdmin handles GET /registry/admin.
func (h *Handler) HandleGetAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin, err := h.service.GetAdmin(ctx)
	if err != nil {
		h.fail(ctx, w, "get admin failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdminResponse{Admin: admin.String()})
}

// HandleRegisterIssuer handles PUT /issuers/{address}.
func (h *Handler) HandleRegisterIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(ctx, w)
	if !ok {
		return
	}
	issuer, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}

	if err := h.service.RegisterIssuer(ctx, caller, issuer); err != nil {
		h.fail(ctx, w, "register issuer failed", err, "caller", caller.String(), "issuer", issuer.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveIssuer handles DELETE /issuers/{address}.
func (h *Handler) HandleRemoveIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(ctx, w)
	if !ok {
		return
	}
	issuer, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}

	if err := h.service.RemoveIssuer(ctx, caller, issuer); err != nil {
		h.fail(ctx, w, "remove issuer failed", err, "caller", caller.String(), "issuer", issuer.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleIsIssuer handles GET /issuers/{address}.
func (h *Handler) HandleIsIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}

	registered, err := h.service.IsIssuer(ctx, address)
	if err != nil {
		h.fail(ctx, w, "is issuer failed", err, "address", address.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IssuerResponse{Address: address.String(), Registered: registered})
}

// HandleCreateAttestation handles POST /attestations. The authenticated
// caller is the issuer.
func (h *Handler) HandleCreateAttestation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(ctx, w)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateAttestationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	attestationID, err := h.service.CreateAttestation(ctx, caller, req.ParsedSubject(), req.ParsedClaimType(), req.ParsedExpiration())
	if err != nil {
		h.fail(ctx, w, "create attestation failed", err,
			"issuer", caller.String(),
			"subject", req.Subject,
			"claim_type", req.ClaimType,
		)
		return
	}

	h.logger.InfoContext(ctx, "attestation created",
		"request_id", requestID,
		"attestation_id", attestationID.String(),
		"issuer", caller.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateAttestationResponse{ID: attestationID.String()})
}

// HandleRevokeAttestation handles POST /attestations/{id}/revoke.
func (h *Handler) HandleRevokeAttestation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(ctx, w)
	if !ok {
		return
	}
	attestationID, ok := h.pathAttestationID(w, r)
	if !ok {
		return
	}

	if err := h.service.RevokeAttestation(ctx, caller, attestationID); err != nil {
		h.fail(ctx, w, "revoke attestation failed", err,
			"issuer", caller.String(),
			"attestation_id", attestationID.String(),
		)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetAttestation handles GET /attestations/{id}.
func (h *Handler) HandleGetAttestation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attestationID, ok := h.pathAttestationID(w, r)
	if !ok {
		return
	}

	a, err := h.service.GetAttestation(ctx, attestationID)
	if err != nil {
		h.fail(ctx, w, "get attestation failed", err, "attestation_id", attestationID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttestation(a))
}

// HandleGetStatus handles GET /attestations/{id}/status.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attestationID, ok := h.pathAttestationID(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetAttestationStatus(ctx, attestationID)
	if err != nil {
		h.fail(ctx, w, "get attestation status failed", err, "attestation_id", attestationID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{ID: attestationID.String(), Status: status.String()})
}

// HandleHasValidClaim handles GET /subjects/{address}/claims/{claimType} and
// GET /subjects/{address}/claims?claim_type=. The query form can carry any
// label, including the empty one.
func (h *Handler) HandleHasValidClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	claimType, ok := claimTypeParam(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "claim_type is required"))
		return
	}

	valid, err := h.service.HasValidClaim(ctx, subject, id.ClaimType(claimType))
	if err != nil {
		h.fail(ctx, w, "has valid claim failed", err, "subject", subject.String(), "claim_type", claimType)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ClaimResponse{Subject: subject.String(), ClaimType: claimType, Valid: valid})
}

func claimTypeParam(r *http.Request) (string, bool) {
	if raw := chi.URLParam(r, "claimType"); raw != "" {
		claimType, err := url.PathUnescape(raw)
		return claimType, err == nil
	}
	values, present := r.URL.Query()["claim_type"]
	if !present || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// HandleSubjectAttestations handles GET /subjects/{address}/attestations.
func (h *Handler) HandleSubjectAttestations(w http.ResponseWriter, r *http.Request) {
	h.handlePage(w, r, h.service.GetSubjectAttestations)
}

// HandleIssuerAttestations handles GET /issuers/{address}/attestations.
func (h *Handler) HandleIssuerAttestations(w http.ResponseWriter, r *http.Request) {
	h.handlePage(w, r, h.service.GetIssuerAttestations)
}

type pageFunc func(ctx context.Context, owner id.Address, start, limit uint32) ([]*models.Attestation, error)

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request, list pageFunc) {
	ctx := r.Context()
	owner, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	start, limit, err := parsePage(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := list(ctx, owner, start, limit)
	if err != nil {
		h.fail(ctx, w, "list attestations failed", err, "owner", owner.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPage(records, start, limit))
}

// parsePage reads start and limit. An absent limit defaults to
// DefaultPageLimit; an explicit limit=0 is honoured.
func parsePage(q url.Values) (start, limit uint32, err error) {
	limit = DefaultPageLimit
	if raw := q.Get("start"); raw != "" {
		v, perr := strconv.ParseUint(raw, 10, 32)
		if perr != nil {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "start must be a non-negative 32-bit integer")
		}
		start = uint32(v)
	}
	if raw := q.Get("limit"); raw != "" {
		v, perr := strconv.ParseUint(raw, 10, 32)
		if perr != nil {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative 32-bit integer")
		}
		limit = uint32(v)
	}
	return start, limit, nil
}

func (h *Handler) requireCaller(ctx context.Context, w http.ResponseWriter) (id.Address, bool) {
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		// RequireAuth guarantees a caller; reaching here means a wiring error.
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return caller, true
}

func (h *Handler) pathAddress(w http.ResponseWriter, r *http.Request, param string) (id.Address, bool) {
	address, err := id.ParseAddress(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+param))
		return "", false
	}
	return address, true
}

func (h *Handler) pathAttestationID(w http.ResponseWriter, r *http.Request) (id.AttestationID, bool) {
	attestationID, err := id.ParseAttestationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid attestation id"))
		return "", false
	}
	return attestationID, true
}

// fail logs at warn for client errors and at error for server errors, then
// writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
