package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-payroll/internal/common/api"
	"go-payroll/internal/config"
	"go-payroll/internal/database"
	"go-payroll/internal/features/audit"
	"go-payroll/internal/features/employee"
	"go-payroll/internal/features/maintenance"
	"go-payroll/internal/features/payroll"
	"go-payroll/internal/features/payroll_import"
	"go-payroll/internal/features/snapshot"
	"go-payroll/internal/features/system"
	"go-payroll/internal/logger"
	"go-payroll/internal/middleware"
	"go-payroll/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// multipart uploads are held in memory; leave room for form fields
		BodyLimit: int(cfg.Import.MaxUploadBytes) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup() on every member of the "routes" group.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	logger.Info("registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		logger.Debug("setting up route", zap.String("api", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app
// exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				logger.Info("listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures the snapshot TTL index exists.
func InitializeIndexes(lc fx.Lifecycle, snapshotRepo snapshot.SnapshotRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := snapshotRepo.EnsureIndexes(ctx); err != nil {
					logger.Warn("failed to ensure snapshot indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

// StartRetention runs the retention scheduler for the lifetime of the app.
func StartRetention(lc fx.Lifecycle, retention maintenance.RetentionService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return retention.InitializeScheduler(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return retention.StopScheduler()
		},
	})
}

// NewImportEngine builds the validation pipeline. Employee matching is only
// wired when enabled, since the register may not be populated.
func NewImportEngine(cfg *config.Config, store database.DocumentStore) (*payroll_import.Engine, error) {
	if err := cfg.Import.Validate(); err != nil {
		return nil, fmt.Errorf("invalid import config: %w", err)
	}
	var directory payroll_import.EmployeeDirectory
	if cfg.Import.MatchEmployees {
		directory = employee.NewDirectory(store)
	}
	return payroll_import.NewEngine(cfg.Import, directory)
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,

			database.NewDatabase,
			fx.Annotate(database.NewMongoStore, fx.As(new(database.DocumentStore))),

			logger.NewLogger,

			NewFiberServer,

			// Repositories
			audit.NewAuditRepository,
			snapshot.NewSnapshotRepository,
			payroll.NewPayrollRepository,

			// Services
			audit.NewAuditService,
			snapshot.NewSnapshotManager,
			payroll.NewPayrollService,
			NewImportEngine,
			payroll_import.NewImportService,
			maintenance.NewRetentionService,

			// Controllers
			audit.NewAuditController,
			snapshot.NewSnapshotController,
			payroll.NewPayrollController,
			payroll_import.NewImportController,
			payroll_import.NewProgressController,
			maintenance.NewRetentionController,
			system.NewSystemController,

			// API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(snapshot.NewSnapshotApi),
			AsRoute(payroll.NewPayrollApi),
			AsRoute(payroll_import.NewImportApi),
			AsRoute(maintenance.NewRetentionApi),
			AsRoute(system.NewSystemApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartRetention,
			InitializeIndexes,
		),
	)

	app.Run()
}
