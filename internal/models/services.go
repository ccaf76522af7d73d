package models

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockgen -destination=mocks/mock_auth.go . AuthService
type AuthService interface {
	Register(ctx context.Context, user UnknownUser) error

	Login(ctx context.Context, user UnknownUser) error

	GetUser(ctx context.Context, login string) (*User, error)
}

//go:generate mockgen -destination=mocks/mock_jwt.go . JWTService
type JWTService interface {
	GenerateJWT(subject string) (string, error)

	ValidateToken(token string) (*jwt.Token, error)
}

// DashboardService — фасад панели продавца: единственная поверхность,
// через которую слой представления читает состояние и запускает переходы.
//
//go:generate mockgen -destination=mocks/mock_dashboard.go . DashboardService
type DashboardService interface {
	// Open разворачивает сессию продавца с живыми подписками.
	// Повторный вызов для открытой сессии ничего не делает.
	Open(ctx context.Context, user User) error

	Orders(ctx context.Context, sellerID string, filter OrderFilter) ([]Order, error)

	Summary(ctx context.Context, sellerID string) (DashboardSummary, error)

	Advance(ctx context.Context, sellerID, orderID string, target OrderStatus) (Order, error)

	OpenDispatch(ctx context.Context, sellerID, orderID string) error

	SubmitDispatch(ctx context.Context, sellerID, orderID string, photo DispatchPhoto, note string) (Order, error)

	Close(sellerID string) error

	Shutdown() error
}

//go:generate mockgen -destination=mocks/mock_notification.go . NotificationService
type NotificationService interface {
	Feed(ctx context.Context, userID string) ([]Notification, error)

	UnreadCount(ctx context.Context, userID string) (int, error)

	MarkRead(ctx context.Context, userID, notificationID string) error
}
