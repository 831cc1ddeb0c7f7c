package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type TokenVerifier interface {
	Verify(token string) (domain.User, error)
}

type ctxKey string

const ctxKeyUser ctxKey = "user"

// AuthMiddleware: Bearer access-токен -> пользователь в контексте запроса.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) <= 7 {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}

			user, err := verifier.Verify(strings.TrimSpace(authHeader[7:]))
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromCtx(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(domain.User)
	return user, ok
}
