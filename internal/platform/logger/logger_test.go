package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlink/internal/platform/config"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.Log{Level: "warn", Format: "json"}, &buf)

	log.Info("hidden")
	log.Warn("shown", "attestation_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "trustlink", line["service"])
	assert.Equal(t, "abc", line["attestation_id"])
}

func TestTextLoggerAndUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.Log{Level: "verbose", Format: "TEXT"}, &buf)

	log.Info("registry ready")
	assert.Contains(t, buf.String(), "msg=\"registry ready\"")
}
