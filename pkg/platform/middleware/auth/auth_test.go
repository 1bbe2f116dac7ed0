package auth

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "trustlink/pkg/domain"
	"trustlink/pkg/requestcontext"
)

type stubValidator map[string]id.Address

func (s stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	caller, ok := s[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &JWTClaims{Caller: caller, JTI: "jti"}, nil
}

func serve(mw func(http.Handler) http.Handler, header string) (*httptest.ResponseRecorder, id.Address) {
	var caller id.Address
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = requestcontext.Caller(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, caller
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mw := RequireAuth(stubValidator{"good": "GADMIN"}, logger)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCaller id.Address
	}{
		{"valid token", "Bearer good", http.StatusOK, "GADMIN"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, caller := serve(mw, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCaller, caller)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mw := OptionalAuth(stubValidator{"good": "GADMIN"}, logger)

	rec, caller := serve(mw, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, caller)

	rec, caller = serve(mw, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.Address("GADMIN"), caller)

	rec, _ = serve(mw, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
