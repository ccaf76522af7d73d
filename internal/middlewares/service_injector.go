package middlewares

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Renal37/marketdesk/internal/models"
)

type key int

const (
	AuthServiceKey key = iota
	JwtServiceKey
	DashboardServiceKey
	NotificationServiceKey
)

func ServiceInjectorMiddleware(
	authService models.AuthService,
	jwtService models.JWTService,
	dashboardService models.DashboardService,
	notificationService models.NotificationService,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), AuthServiceKey, authService)
			ctx = context.WithValue(ctx, JwtServiceKey, jwtService)
			ctx = context.WithValue(ctx, DashboardServiceKey, dashboardService)
			ctx = context.WithValue(ctx, NotificationServiceKey, notificationService)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetServiceFromContext[Service interface{}](w http.ResponseWriter, r *http.Request, serviceKey key) *Service {
	foundService, ok := r.Context().Value(serviceKey).(Service)

	if !ok {
		http.Error(w, fmt.Sprintf("Service wasn't found in context by key %v", serviceKey), http.StatusInternalServerError)
		return nil
	}

	return &foundService
}
