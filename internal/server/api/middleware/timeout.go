package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/api/apierrors"
)

// Timeout bounds every request with a context deadline. When the deadline
// fires before the handler has produced a response, the client gets a 408
// REQUEST_TIMEOUT envelope so it knows the request is safe to retry.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			next.ServeHTTP(tw, r.WithContext(ctx))

			if ctx.Err() == context.DeadlineExceeded && !tw.wrote {
				apierrors.RequestTimeout(w, r)
			}
		})
	}
}

// timeoutWriter tracks whether the handler already started a response, in
// which case the timeout envelope must not be appended to it.
type timeoutWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *timeoutWriter) WriteHeader(statusCode int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}
