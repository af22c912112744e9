package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/catalog"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	complaintRepo := repository.NewComplaintRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	stateLogRepo := repository.NewStateChangeRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	unitOfWork := repository.NewUnitOfWork(pool)

	catalogCache := catalog.NewCache(catalogRepo, redis.Client, cfg.Catalog.CacheTTL(), logger)
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  userRepo,
		StaffRepo: staffRepo,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		ComplaintRepo:  complaintRepo,
		StaffRepo:      staffRepo,
		StateLogRepo:   stateLogRepo,
		AssignmentRepo: assignmentRepo,
		UnitOfWork:     unitOfWork,
		Catalog:        catalogCache,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:  complaintRepo,
		CommentRepo:    commentRepo,
		StateLogRepo:   stateLogRepo,
		AssignmentRepo: assignmentRepo,
		CategoryRepo:   categoryRepo,
		DepartmentRepo: departmentRepo,
		StaffRepo:      staffRepo,
		UnitOfWork:     unitOfWork,
		Catalog:        catalogCache,
		Dispatcher:     dispatcher,
		AutoAssigner:   assignmentService,
		Logger:         logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		StaffRepo:        staffRepo,
		Dispatcher:       dispatcher,
		Sender:           service.NewLogSender(logger, cfg.Notification.EmailFrom),
		Logger:           logger,
		Config:           cfg.Notification,
	})
	notificationService.RegisterHandlers()
	slaService := service.NewSlaService(complaintRepo, dispatcher, logger, cfg.Sla)

	sweepWorker := worker.NewSweepWorker(slaService, metrics, logger, cfg.Sla)
	sweepWorker.Start(ctx)
	defer sweepWorker.Stop()

	notificationWorker := worker.NewNotificationWorker(notificationService, metrics, logger, cfg.Notification)
	notificationWorker.Start(ctx)
	defer notificationWorker.Stop()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:           handlers.NewUsersHandler(authService),
		Staff:           handlers.NewStaffHandler(authService),
		Complaints:      handlers.NewComplaintsHandler(complaintService),
		StaffComplaints: handlers.NewStaffComplaintsHandler(complaintService, assignmentService),
		Notifications:   handlers.NewNotificationsHandler(notificationService),
		Catalog:         handlers.NewCatalogHandler(catalogCache),
		AuthMiddleware:  authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
