package middleware

import (
	"mime"
	"net/http"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/models"
)

// RequireJSON rejects POST, PUT and PATCH requests whose Content-Type is set
// to something other than application/json. A missing Content-Type is let
// through and left to the body decoder.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mediaType, _, err := mime.ParseMediaType(ct)
				if err != nil || mediaType != "application/json" {
					problem := models.NewInvalidBody(GetRequestID(r.Context()), "request body must be JSON")
					problem.Instance = r.URL.Path
					problem.Write(w)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
