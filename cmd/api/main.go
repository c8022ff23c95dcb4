package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/ai"
	httptransport "github.com/spec-kit/servicedesk/internal/api/http"
	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/match"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)
	skillRepo := repository.NewSkillRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)

	aiClient := ai.NewClient(cfg.AI, logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:       userRepo,
		TechnicianRepo: technicianRepo,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:     ticketRepo,
		TechnicianRepo: technicianRepo,
		TaskRepo:       taskRepo,
		AI:             aiClient,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		Workload: match.WorkloadConfig{
			MaxAggregate: cfg.Assignment.WorkloadMaxAggregate,
			TicketCap:    cfg.Assignment.TicketScoreCap,
		},
		StrictMatch: cfg.Assignment.StrictSkillMatch,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		TechnicianRepo: technicianRepo,
		SkillRepo:      skillRepo,
		TaskRepo:       taskRepo,
		Assigner:       assignmentService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo: ticketRepo,
		Assigner:   assignmentService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	technicianService := service.NewTechnicianService(service.TechnicianDependencies{
		TechnicianRepo: technicianRepo,
		SkillRepo:      skillRepo,
		Accounts:       authService,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, technicianRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, lifecycleService, assignmentService),
		Technicians:    handlers.NewTechniciansHandler(technicianService, assignmentService),
		AuthMiddleware: authMiddleware,
		RateLimit:      httptransport.CreationRateLimit(redis, cfg.App.CreateRateLimit, cfg.App.CreateRateWindow(), logger),
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
