package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/giftwell-app/giftwell-backend/api/responses"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

// InternalToken guards service-to-service routes with a shared secret. An
// empty configured token rejects all traffic rather than opening the route.
func InternalToken(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := strings.TrimSpace(r.Header.Get("X-Internal-Token"))
			if token == "" || provided == "" || subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid internal token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
