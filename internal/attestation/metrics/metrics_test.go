package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementCreated()
	m.IncrementCreated()
	m.IncrementRevoked()
	m.IncrementError("revoke_attestation", "already_revoked")
	m.IncrementDropped("kafka", "created")
	m.ObserveOperation("create_attestation", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AttestationsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttestationsRevoked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationErrors.WithLabelValues("revoke_attestation", "already_revoked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("kafka", "created")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementCreated()
		m.IncrementRevoked()
		m.IncrementError("op", "code")
		m.IncrementPublished("log", "created")
		m.IncrementDropped("log", "created")
		m.ObserveOperation("op", time.Now())
	})
}
