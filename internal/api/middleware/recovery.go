package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/utils"
)

// Recovery turns a panic in an ops handler into a 500 carrying the request id,
// so a failed probe or scrape can be matched to its log entry
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := GetRequestID(r)
				log.WithFields(map[string]interface{}{
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"path":       r.URL.Path,
					"request_id": requestID,
				}).Error("Panic recovered in ops handler")

				appErr := errors.Internal("ops handler failed", fmt.Errorf("panic: %v", rec)).
					WithDetails(map[string]string{"request_id": requestID})
				utils.WriteError(w, appErr)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
