package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/jobcopilot/jobstore/internal/api/response"
)

// Recovery turns handler panics into JSON 500s instead of dropped
// connections. The panic value and stack go to the log only, never to the
// client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("handler panicked",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", v,
					"stack", string(debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "The server hit an unexpected condition", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
