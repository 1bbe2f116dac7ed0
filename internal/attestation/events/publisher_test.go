package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
)

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, models.Event) error { return f.err }

func createdEvent(t *testing.T) models.Event {
	t.Helper()
	a, err := models.NewAttestation(id.AttestationID("ab"), "GISSUER", "GSUBJECT", "KYC_PASSED", time.Unix(1700000000, 0), nil)
	require.NoError(t, err)
	return models.NewCreatedEvent(a)
}

func TestLogPublisherWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), createdEvent(t)))

	line := buf.String()
	assert.Contains(t, line, "msg=attestation_created")
	assert.Contains(t, line, "key=GSUBJECT")
	assert.Contains(t, line, "issuer=GISSUER")
	assert.Contains(t, line, "timestamp=1700000000")
}

func TestLogPublisherRevokedOmitsCreatePayload(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), models.NewRevokedEvent("ab", "GISSUER")))

	line := buf.String()
	assert.Contains(t, line, "msg=attestation_revoked")
	assert.Contains(t, line, "key=GISSUER")
	assert.NotContains(t, line, "claim_type=")
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	first, second := NewRecorder(), NewRecorder()
	boom := errors.New("boom")
	m := Multi{first, failingPublisher{err: boom}, nil, second}

	err := m.Publish(context.Background(), createdEvent(t))

	require.ErrorIs(t, err, boom)
	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1, "a failing sink must not starve later sinks")
}

func TestRecorderKeepsOrder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, createdEvent(t)))
	require.NoError(t, r.Publish(ctx, models.NewRevokedEvent("ab", "GISSUER")))

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, models.EventCreated, got[0].Kind)
	assert.Equal(t, models.EventRevoked, got[1].Kind)

	r.Reset()
	assert.Empty(t, r.Events())
}
