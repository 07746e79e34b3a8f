package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mathpets/battle-arena/internal/logging"
	httperrors "github.com/mathpets/battle-arena/pkg/http/errors"
)

type userIDKey struct{}

// Middleware validates bearer tokens and injects the user id into request
// context, along with a request-scoped logger carrying it. Every failure is
// a uniform 401; the response never says which part of the token was bad.
func Middleware(mgr *Manager, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Unauthorized")
				return
			}

			userID, err := mgr.ResolveUserID(parts[1])
			if err != nil {
				logger.Warn().Err(err).Msg("token validation failed")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			ctx = logging.IntoContext(ctx, logger.With().Str("user_id", userID.String()).Logger())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user id from request context.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
