package httpmw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cwrk-planet/room-relay/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxKeySubject ctxKey = "subject"

var errNoToken = errors.New("missing token")

// Auth checks an HS256 token taken from the access_token query parameter or
// an "Authorization: Bearer" header. The subject is only logged and exposed
// through SubjectFromCtx. With required unset, requests without a token pass
// through, but a token that is present must still be valid.
func Auth(secret string, required bool) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := tokenFrom(r)
			if errors.Is(err, errNoToken) && !required {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil || len(key) == 0 {
				writeUnauthorized(w, "missing token")
				return
			}

			claims := &jwt.RegisteredClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return key, nil
			}); err != nil {
				logger.FromContext(r.Context()).Debug("token rejected", "path", r.URL.Path, "err", err)
				writeUnauthorized(w, "invalid token")
				return
			}

			logger.FromContext(r.Context()).Debug("token accepted", "path", r.URL.Path, "subject", claims.Subject)
			ctx := context.WithValue(r.Context(), ctxKeySubject, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFrom(r *http.Request) (string, error) {
	if t := strings.TrimSpace(r.URL.Query().Get("access_token")); t != "" {
		return t, nil
	}
	auth := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(auth, "Bearer "); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t), nil
	}
	return "", errNoToken
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

func SubjectFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySubject).(string); ok {
		return v
	}
	return ""
}
