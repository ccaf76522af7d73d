package router

import (
	"log"
	"net/http"

	"github.com/Renal37/marketdesk/internal/logger"
	"github.com/Renal37/marketdesk/internal/middlewares"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/go-chi/chi/v5"
)

type Config struct {
	Endpoint   string
	UploadsDir string
}

type Router struct {
	config              Config
	authService         models.AuthService
	jwtService          models.JWTService
	dashboardService    models.DashboardService
	notificationService models.NotificationService
}

func New(
	config Config,
	authService models.AuthService,
	jwtService models.JWTService,
	dashboardService models.DashboardService,
	notificationService models.NotificationService,
) *Router {
	return &Router{
		config,
		authService,
		jwtService,
		dashboardService,
		notificationService,
	}
}

func (router *Router) get() chi.Router {
	r := chi.NewRouter()

	r.Use(
		middlewares.ServiceInjectorMiddleware(
			router.authService,
			router.jwtService,
			router.dashboardService,
			router.notificationService,
		),
		logger.RequestLogger,
		middlewares.AuthMiddleware().WithExcludedPaths(
			"/api/user/register",
			"/api/user/login",
			"/uploads/",
		).Middleware,
	)

	r.Route("/api/user", func(r chi.Router) {
		r.With(middlewares.JSONMiddleware[models.UnknownUser]).Post("/register", Register)
		r.With(middlewares.JSONMiddleware[models.UnknownUser]).Post("/login", Login)

		r.Get("/notifications", GetNotifications)
		r.Post("/notifications/{notificationID}/read", MarkNotificationRead)
	})

	r.Route("/api/seller", func(r chi.Router) {
		r.Get("/orders", GetOrders)
		r.With(middlewares.JSONMiddleware[models.AdvanceRequest]).Post("/orders/{orderID}/advance", AdvanceOrder)

		r.Post("/orders/{orderID}/dispatch/open", OpenDispatch)
		r.With(middlewares.DispatchFormMiddleware).Post("/orders/{orderID}/dispatch", SubmitDispatch)

		r.Get("/summary", GetSummary)
	})

	// Фото отправки раздаются как статика из каталога загрузок.
	if router.config.UploadsDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(router.config.UploadsDir)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	return r
}

func (router *Router) Run() {
	log.Fatal(http.ListenAndServe(router.config.Endpoint, router.get()))
}
