package testutil

import (
	"net/http"
	"time"

	id "trustlink/pkg/domain"
	"trustlink/pkg/requestcontext"
)

// WithCaller adds an authenticated caller to the request context.
// This simulates what the auth middleware does for a valid bearer token.
// Invalid addresses are silently ignored.
func WithCaller(req *http.Request, caller string) *http.Request {
	if parsed, err := id.ParseAddress(caller); err == nil {
		return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
	}
	return req
}

// WithRequestTime pins the ledger time the handler will see.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
