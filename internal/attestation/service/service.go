package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trustlink/internal/attestation/events"
	"trustlink/internal/attestation/metrics"
	"trustlink/internal/attestation/models"
	"trustlink/internal/attestation/store"
	"trustlink/internal/attestation/tracing"
	dErrors "trustlink/pkg/domain-errors"
	"trustlink/pkg/platform/sentinel"
	"trustlink/pkg/requestcontext"
)

// Operation names used for metrics, spans and audit lines.
const (
	opInitialize        = "initialize"
	opGetAdmin          = "get_admin"
	opRegisterIssuer    = "register_issuer"
	opRemoveIssuer      = "remove_issuer"
	opIsIssuer          = "is_issuer"
	opCreateAttestation = "create_attestation"
	opRevokeAttestation = "revoke_attestation"
	opGetAttestation    = "get_attestation"
	opGetStatus         = "get_attestation_status"
	opHasValidClaim     = "has_valid_claim"
	opSubjectPage       = "get_subject_attestations"
	opIssuerPage        = "get_issuer_attestations"
)

// Service is the attestation registry. Every mutating operation runs as one
// store transaction; events raised inside it are published only after commit.
type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service over st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = tracing.Tracer()
	}
	return s
}

// unit is the per-attempt view of a transaction. A store may run the same
// closure more than once, so events live with the attempt, not the Service.
type unit struct {
	tx     store.Tx
	events []models.Event
}

func (u *unit) emit(event models.Event) {
	u.events = append(u.events, event)
}

// mutate runs fn in a transaction. The events of the attempt that commits
// are handed to the publisher from the store's commit hook, so emission
// order follows commit order.
func (s *Service) mutate(ctx context.Context, fn func(u *unit) error) error {
	return s.store.RunInTx(ctx, func(tx store.Tx) error {
		u := &unit{tx: tx}
		if err := fn(u); err != nil {
			return err
		}
		if len(u.events) > 0 {
			tx.OnCommit(func() { s.publish(ctx, u.events) })
		}
		return nil
	})
}

func (s *Service) publish(ctx context.Context, pending []models.Event) {
	if s.publisher == nil {
		return
	}
	for _, event := range pending {
		if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "event publish failed",
				"kind", string(event.Kind),
				"attestation_id", event.AttestationID.String(),
				"error", err,
			)
		}
	}
}

// begin opens a span and starts the latency clock. The returned func must be
// called with the operation's final error.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := tracing.TraceOp(ctx, s.tracer, "attestation."+op, attrs...)
	return ctx, func(err error) {
		s.metrics.ObserveOperation(op, start)
		if err != nil {
			s.metrics.IncrementError(op, string(dErrors.CodeOf(err)))
		}
		endSpan(err)
	}
}

// now is the ledger time of the invocation, at second resolution.
func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Second)
}

// translate maps store facts onto domain errors. Domain errors pass through.
func translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent update, retry the request")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registry storage unavailable, retry later")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry storage failure")
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if version := requestcontext.APIVersion(ctx); version != "" {
		attributes = append(attributes, "api_version", string(version))
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
