package middlew

import (
	"context"
	"errors"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/service"
	"gw-ledger/pkg/response"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func RequireAuth(authService service.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := GetLogger(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Authorization header is required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Warn("invalid authorization header format")
				response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Invalid authorization header format")
				return
			}

			tokenString := parts[1]

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, custom_err.ErrTokenExpired):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "token_expired", "Token has expired")
				case errors.Is(err, custom_err.ErrTokenNotActive):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "token_not_active", "Token not yet active")
				case errors.Is(err, custom_err.ErrInvalidToken):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "invalid_token", "Invalid token")
				default:
					log.Error("failed to validate token", slog.String("error", err.Error()))
					response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Internal error")
				}
				return
			}
			ctx := r.Context()
			ctx = context.WithValue(ctx, accountIDKey, claims.AccountID)

			loggerWithAccount := log.With(slog.String("account_id", claims.AccountID.String()))
			ctx = context.WithValue(ctx, loggerKey, loggerWithAccount)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetAccountID(ctx context.Context) uuid.UUID {
	accountID, ok := ctx.Value(accountIDKey).(uuid.UUID)
	if !ok {
		panic("accountID not found in context - RequireAuth middleware not applied?")
	}
	return accountID
}
