package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobdispatch-backend/controller"
	"jobdispatch-backend/dal"
	"jobdispatch-backend/middelware"
	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/services"
	"jobdispatch-backend/utils"
	"jobdispatch-backend/utils/logger"
	"jobdispatch-backend/worker"

	"github.com/gin-gonic/gin"
)

var config *models.Config

func Init() {
	var err error
	config, err = utils.GetConfig()
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	Init()
	appLogger := logger.NewLogger(config.LogLevel, config.LogFormat)
	appLogger.Infof("Starting %s %s (%s)", config.AppName, config.AppVersion, config.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dal.NewDynamoDBClient(ctx, config, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create DynamoDB client: %v", err)
	}

	tables := worker.NewTableSetup(db, config, appLogger)
	if _, err := tables.EnsureTables(ctx); err != nil {
		appLogger.Fatalf("Failed to prepare tables: %v", err)
	}

	store, err := dal.NewMinioStore(ctx, config, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create report store: %v", err)
	}

	rdb, err := dal.NewRedisClient(ctx, config, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}

	// a nil *redis.Client must not reach the interfaces as a non-nil value
	var (
		counter repository.Incrementer
		guard   services.ActionGuard
	)
	if rdb != nil {
		defer rdb.Close()
		counter = rdb
		guard = services.NewRedisActionGuard(rdb, config.ActionGuardTTL, appLogger)
	} else {
		guard = services.NewLocalActionGuard()
	}

	repo := repository.NewRepository(db, store, counter, config, appLogger)
	svc := services.NewService(repo, guard, appLogger, config)
	jwtManager := middelware.NewJWTManager(config, appLogger)

	maintenance, err := worker.NewWorker(config, appLogger, svc.GetTechnicianService(), jwtManager, guard)
	if err != nil {
		appLogger.Fatalf("Failed to create maintenance worker: %v", err)
	}
	workerService := worker.NewService(maintenance, appLogger)
	if err := workerService.StartInBackground(); err != nil {
		appLogger.Fatalf("Failed to start maintenance worker: %v", err)
	}

	if config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	logging := middelware.NewLoggingMiddleware(appLogger, config.BasePath+"/health")
	r.Use(logging.Recovery(), logging.StructuredLogger(), middelware.NewCORSMiddleware(config).CORS())

	controller.NewController(svc, jwtManager, config, appLogger).
		WithHealth(workerService).
		RegisterRoutes(r, config.BasePath)

	server := &http.Server{
		Addr:              net.JoinHostPort(config.AppHost, config.AppPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("Server shutdown failed: %v", err)
	}
	if err := workerService.Stop(); err != nil {
		appLogger.Errorf("Worker shutdown failed: %v", err)
	}
}
