package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/go-pkgz/lgr"
)

// Recovery creates a middleware for panic recovery.
func Recovery(logger lgr.L) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Logf("ERROR panic recovered: %v\nStack trace:\n%s", err, debug.Stack())

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					if encErr := json.NewEncoder(w).Encode(map[string]interface{}{
						"error": "internal server error",
						"code":  http.StatusInternalServerError,
					}); encErr != nil {
						logger.Logf("ERROR failed to encode recovery error response: %v", encErr)
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
