// Package middleware provides the HTTP middleware wrapped around the canvas
// API. Every constructor returns func(http.Handler) http.Handler so they
// chain:
//
//	handler := middleware.PanicRecovery(logger)(mux)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.RequestID()(handler)
package middleware
