package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds request bodies. Node payloads are the largest
// thing a client sends.
const DefaultMaxBodyBytes = 1 << 20

// BodySizeLimit rejects declared oversize bodies up front and caps the rest
// with http.MaxBytesReader, which covers chunked uploads.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
