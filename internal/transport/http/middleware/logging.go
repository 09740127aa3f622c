package httpmw

import (
	"net/http"

	"github.com/cwrk-planet/room-relay/pkg/logger"

	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger stores a logger tagged with the request id in the request
// context. Handlers read it with logger.FromContext. Must run after
// chi's RequestID middleware.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.L().With(
			"request_id", middlewareChi.GetReqID(r.Context()),
			"path", r.URL.Path,
		)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}
