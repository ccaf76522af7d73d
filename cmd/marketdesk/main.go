package main

import (
	"context"
	"log"

	"github.com/Renal37/marketdesk/internal/database"
	"github.com/Renal37/marketdesk/internal/gateway"
	router "github.com/Renal37/marketdesk/internal/http"
	"github.com/Renal37/marketdesk/internal/logger"
	"github.com/Renal37/marketdesk/internal/services"
	"github.com/Renal37/marketdesk/internal/storage"
	"github.com/Renal37/marketdesk/internal/utils"
)

func main() {
	ctx := context.Background()
	config := NewConfig()

	if err := logger.Initialize(config.logLevel, config.env); err != nil {
		log.Fatalf("Logger wasn't initialized due to %s", err)
	}

	var documents gateway.Gateway
	var closeGateway func()

	if config.dsn != "" {
		db, err := database.New(ctx, config.dsn)

		if err != nil {
			log.Fatalf("Database wasn't initialized due to %s", err)
		}

		if err := db.RunMigrations(); err != nil {
			log.Fatalf("Migrations weren't run due to %s", err)
		}

		documents = db
		closeGateway = db.Close
	} else {
		// Без DSN документы живут в памяти процесса и не переживают рестарт.
		log.Println("WARNING: DATABASE_URI is not set, using in-memory document storage")
		documents = gateway.NewMemory()
		closeGateway = func() {}
	}

	objectStorage, err := storage.NewLocal(config.uploadsDir, config.uploadsURL)
	if err != nil {
		log.Fatalf("Uploads storage wasn't initialized due to %s", err)
	}

	log.Printf("Running server on %s\n", config.endpoint)

	notificationService := services.NewNotificationService(documents)
	lifecycleService := services.NewLifecycleService(documents, notificationService)
	dispatchService := services.NewDispatchService(objectStorage, lifecycleService)
	dashboardService := services.NewDashboardService(ctx, documents, lifecycleService, dispatchService, notificationService, services.LogAlertSink{})

	utils.HandleTerminationProcess(func() {
		if err := dashboardService.Shutdown(); err != nil {
			log.Printf("Dashboard sessions weren't closed cleanly due to %s\n", err)
		}
		closeGateway()
	})

	router.New(
		router.Config{Endpoint: config.endpoint, UploadsDir: objectStorage.Dir()},
		services.NewAuthService(documents),
		services.NewJWTService(config.authSecretKey),
		dashboardService,
		notificationService,
	).Run()
}
