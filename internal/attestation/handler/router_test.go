package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlink/internal/attestation/service"
	"trustlink/internal/attestation/store"
	jwttoken "trustlink/internal/jwt_token"
	id "trustlink/pkg/domain"
	"trustlink/pkg/platform/middleware/requesttime"
	"trustlink/pkg/testutil"
)

// registryServer runs the real service on the in-memory store behind real
// JWT validation.
type registryServer struct {
	t      *testing.T
	router chi.Router
	jwt    *jwttoken.JWTService
	now    time.Time
}

func newRegistryServer(t *testing.T) *registryServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := jwttoken.NewJWTService("test-key", "trustlink", "trustlink-api")
	srv := &registryServer{t: t, jwt: jwt, now: time.Unix(1700000000, 0).UTC()}

	r := chi.NewRouter()
	r.Use(requesttime.MiddlewareWithClock(func() time.Time { return srv.now }))
	svc := service.New(store.NewInMemory(), service.WithLogger(logger))
	New(svc, jwttoken.NewJWTServiceAdapter(jwt), logger).Register(r)
	srv.router = r
	return srv
}

func (s *registryServer) call(method, path string, caller id.Address, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = testutil.NewRequest(s.t, method, path)
	} else {
		req = testutil.NewRequestWithBody(s.t, method, path, body)
	}
	var token string
	if caller != "" {
		var err error
		token, err = s.jwt.IssueToken(caller, time.Hour)
		require.NoError(s.t, err)
	}
	return testutil.Serve(s.router, testutil.WithBearer(req, token))
}

func (s *registryServer) status(attestationID string) string {
	rec := s.call(http.MethodGet, "/attestations/"+attestationID+"/status", "", "")
	require.Equal(s.t, http.StatusOK, rec.Code)
	return testutil.DecodeJSON[StatusResponse](s.t, rec).Status
}

func (s *registryServer) hasValidClaim(subject, claim string) bool {
	rec := s.call(http.MethodGet, "/subjects/"+subject+"/claims/"+claim, "", "")
	require.Equal(s.t, http.StatusOK, rec.Code)
	return testutil.DecodeJSON[ClaimResponse](s.t, rec).Valid
}

func TestRegistryOverHTTP(t *testing.T) {
	srv := newRegistryServer(t)

	testutil.Given(t, "an initialized registry with one issuer", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, srv.call(http.MethodPost, "/registry/initialize", "GADMIN", "").Code)
		require.Equal(t, http.StatusNoContent, srv.call(http.MethodPut, "/issuers/GISSUER", "GADMIN", "").Code)
	})

	var id1 string
	testutil.When(t, "the issuer attests KYC for a subject", func(t *testing.T) {
		rec := srv.call(http.MethodPost, "/attestations", "GISSUER", `{"subject":"GSUBJECT","claim_type":"KYC_PASSED"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		id1 = testutil.DecodeJSON[CreateAttestationResponse](t, rec).ID
		assert.Len(t, id1, id.AttestationIDLength)
	})

	testutil.Then(t, "the claim is valid until revoked", func(t *testing.T) {
		assert.Equal(t, "valid", srv.status(id1))
		assert.True(t, srv.hasValidClaim("GSUBJECT", "KYC_PASSED"))

		require.Equal(t, http.StatusNoContent, srv.call(http.MethodPost, "/attestations/"+id1+"/revoke", "GISSUER", "").Code)
		assert.Equal(t, "revoked", srv.status(id1))
		assert.False(t, srv.hasValidClaim("GSUBJECT", "KYC_PASSED"))

		rec := srv.call(http.MethodPost, "/attestations/"+id1+"/revoke", "GISSUER", "")
		testutil.AssertError(t, rec, http.StatusConflict, "already_revoked")
	})

	testutil.Then(t, "an already expired attestation is never valid", func(t *testing.T) {
		srv.now = srv.now.Add(time.Second)
		past := srv.now.Add(-time.Minute).Unix()
		body, err := json.Marshal(map[string]any{"subject": "GOTHER", "claim_type": "KYC_PASSED", "expiration": past})
		require.NoError(t, err)

		rec := srv.call(http.MethodPost, "/attestations", "GISSUER", string(body))
		require.Equal(t, http.StatusCreated, rec.Code)
		resp := testutil.DecodeJSON[CreateAttestationResponse](t, rec)

		assert.Equal(t, "expired", srv.status(resp.ID))
		assert.False(t, srv.hasValidClaim("GOTHER", "KYC_PASSED"))
	})

	testutil.And(t, "the issuer index lists both in creation order", func(t *testing.T) {
		rec := srv.call(http.MethodGet, "/issuers/GISSUER/attestations?start=0&limit=5", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := testutil.DecodeJSON[PageResponse](t, rec)
		require.Equal(t, 2, page.Count)
		assert.Equal(t, id1, page.Attestations[0].ID)
		assert.Equal(t, "GOTHER", page.Attestations[1].Subject)

		rec = srv.call(http.MethodGet, "/issuers/GISSUER/attestations?start=2", "", "")
		assert.Equal(t, 0, testutil.DecodeJSON[PageResponse](t, rec).Count)
	})

	testutil.Then(t, "non-admins and unregistered issuers are refused", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, srv.call(http.MethodPut, "/issuers/GROGUE", "GISSUER", "").Code)
		rec := srv.call(http.MethodPost, "/attestations", "GROGUE", `{"subject":"GSUBJECT","claim_type":"KYC_PASSED"}`)
		testutil.AssertError(t, rec, http.StatusForbidden, "unauthorized")
	})
}
