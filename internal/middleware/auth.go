package middleware

import (
	"context"
	"net/http"
	"strings"

	"feedhub/internal/db"
	"feedhub/internal/models"
)

// AuthMiddleware resolves the bearer device token to a user and attaches both
// the user and the authenticating device to the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Please log in", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "Authorization header format must be 'Bearer <token>'", http.StatusUnauthorized)
			return
		}

		user, device, err := db.GetUserByDeviceToken(r.Context(), parts[1])
		if err != nil {
			http.Error(w, "Please log in", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), models.UserContextKey, &user)
		ctx = context.WithValue(ctx, models.DeviceContextKey, &device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
