package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/report"
	"github.com/jthornton/solar-workflow/internal/application/service"
	"github.com/jthornton/solar-workflow/internal/application/sideeffect"
	"github.com/jthornton/solar-workflow/internal/config"
	"github.com/jthornton/solar-workflow/internal/infrastructure/external/crm"
	"github.com/jthornton/solar-workflow/internal/infrastructure/external/esign"
	"github.com/jthornton/solar-workflow/internal/infrastructure/persistence/repository"
	"github.com/jthornton/solar-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/jthornton/solar-workflow/internal/infrastructure/storage"
	httpserver "github.com/jthornton/solar-workflow/internal/interfaces/http"
	"github.com/jthornton/solar-workflow/pkg/database"
	"github.com/jthornton/solar-workflow/pkg/utils"
)

func main() {
	// Load .env before viper reads the environment
	_ = gotenv.Load()

	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Solar Workflow Engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Create storage directories
	if err := os.MkdirAll(cfg.Storage.ArchiveDir, 0755); err != nil {
		logger.Fatal("Failed to create archive directory", zap.Error(err))
	}
	if err := os.MkdirAll(cfg.Storage.WorkingDir, 0755); err != nil {
		logger.Fatal("Failed to create working directory", zap.Error(err))
	}

	// Transaction manager shares the connection pool with the repositories
	txManager := sqlite.NewDB(db.DB, logger)

	// Initialize repositories
	progressRepo := repository.NewProgressRepository(db.DB, logger)
	stepRepo := repository.NewStepRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	surveyRepo := repository.NewSurveyRepository(db.DB, logger)
	calculatorRepo := repository.NewCalculatorRepository(db.DB, logger)
	outcomeRepo := repository.NewOutcomeRepository(db.DB, logger)

	// Initialize external clients
	crmClient := crm.NewClient(crm.Config{
		BaseURL: cfg.CRM.BaseURL,
		APIKey:  cfg.CRM.APIKey,
		Timeout: cfg.CRM.Timeout,
	}, logger)

	esignClient := esign.NewClient(esign.Config{
		BaseURL: cfg.ESign.BaseURL,
		APIKey:  cfg.ESign.APIKey,
		Timeout: cfg.ESign.Timeout,
	}, logger)

	// Initialize storage adapters
	folderManager := storage.NewLocalFolderManager(cfg.Storage.ArchiveDir, logger)
	archiver := storage.NewLocalArchiver(folderManager, logger)
	cleaner := storage.NewGeneratedFileCleaner(cfg.Storage.WorkingDir, logger)

	appLogger := &zapLoggerAdapter{logger: logger}

	// Wire side effects into the dispatcher
	effects := sideeffect.NewEffects(
		outcomeRepo,
		crmClient,
		esignClient,
		archiver,
		surveyRepo,
		calculatorRepo,
		cleaner,
		cfg.Workflow.SignedContractStage,
		appLogger,
	)
	dispatcher := sideeffect.BuildDispatcher(effects, appLogger)

	// Initialize services
	var serviceOpts []service.ServiceOption
	if cfg.Workflow.SystemUserID > 0 {
		serviceOpts = append(serviceOpts, service.WithSystemUser(cfg.Workflow.SystemUserID))
	}

	workflowService := service.NewWorkflowService(
		progressRepo,
		stepRepo,
		userRepo,
		surveyRepo,
		txManager,
		dispatcher,
		appLogger,
		serviceOpts...,
	)

	adminService := service.NewAdminService(
		progressRepo,
		userRepo,
		surveyRepo,
		calculatorRepo,
		crmClient,
		appLogger,
	)

	exporter := report.NewExporter(logger)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, workflowService, adminService, exporter, appLogger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

// zapLoggerAdapter adapts zap.Logger to the application-layer Logger
// interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
