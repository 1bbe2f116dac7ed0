// Package version provides middleware for API version extraction.
package version

import (
	"net/http"

	id "trustlink/pkg/domain"
	"trustlink/pkg/requestcontext"
)

// ExtractVersion stores the version of the chi subrouter that matched.
//
// Usage:
//
//	r.Route("/v1", func(v1 chi.Router) {
//	    v1.Use(version.ExtractVersion(id.APIVersionV1))
//	    // ... routes
//	})
func ExtractVersion(version id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithAPIVersion(r.Context(), version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
