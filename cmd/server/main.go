package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/ai"
	"github.com/supportflow/support-agent/internal/config"
	"github.com/supportflow/support-agent/internal/email"
	"github.com/supportflow/support-agent/internal/erp"
	httpapi "github.com/supportflow/support-agent/internal/interfaces/http"
	"github.com/supportflow/support-agent/internal/policy"
	"github.com/supportflow/support-agent/internal/repository"
	"github.com/supportflow/support-agent/internal/tools"
	"github.com/supportflow/support-agent/internal/worker"
	"github.com/supportflow/support-agent/internal/workflow"
	"github.com/supportflow/support-agent/pkg/database"
	"github.com/supportflow/support-agent/pkg/utils"
)

func main() {
	// Load .env before config so env binds see local overrides
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

	logger.Info("Starting Support Agent",
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

	// Initialize repositories
	ticketRepo := repository.NewTicketRepository(db.DB, logger)
	stateRepo := repository.NewStateRepository(db.DB, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)
	gmailRepo := repository.NewGmailRepository(db.DB, logger)
	policyRepo := repository.NewPolicyRepository(db.DB, logger)

	store := repository.NewTicketStore(db, ticketRepo, stateRepo, auditRepo, logger)

	// Load the policy catalog, falling back to the built-in set
	catalog, err := policyRepo.LoadCatalog()
	if err != nil {
		logger.Fatal("Failed to load policy catalog", zap.Error(err))
	}
	if len(catalog) == 0 {
		logger.Warn("Policy table is empty, using built-in catalog")
		catalog = policy.DefaultCatalog()
	}

	// Initialize domain services
	erpService := erp.NewService(logger)
	toolRegistry := tools.NewRegistry(erpService, logger)
	matcher := policy.NewMatcher(catalog, policy.DiceScorer{}, cfg.Agent.PolicyThreshold, logger)
	composer := email.NewComposer(cfg.Email.Signature)

	// Initialize AI services
	openaiClient := openai.NewClient(cfg.OpenAI.APIKey)
	classifier := ai.NewClassifier(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.Temperature, logger)
	resolver := ai.NewResolver(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.Temperature, toolRegistry.Specs(), logger)

	// Initialize workflow engine
	engine := workflow.NewEngine(
		store,
		classifier,
		resolver,
		toolRegistry,
		matcher,
		erpService,
		composer,
		workflow.Config{
			MaxToolIterations: cfg.Agent.MaxToolIterations,
			PoliciesContext:   policy.FormatContext(catalog),
		},
		logger,
	)

	// Initialize background workers
	workerManager := worker.NewManager(logger)
	workerManager.Register(worker.NewRetryWorker(worker.RetryWorkerConfig{
		PollInterval: cfg.Agent.RetryInterval,
		BatchSize:    cfg.Agent.RetryBatchSize,
	}, engine, ticketRepo, logger))

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if err := workerManager.StartAll(rootCtx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// Initialize HTTP server
	sugar := logger.Sugar()
	handlers := httpapi.NewHandlers(engine, store, auditRepo, gmailRepo, &zapAdapter{sugar})
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, &zapAdapter{sugar})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(rootCtx)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	rootCancel()
	workerManager.StopAll()

	if err := server.Stop(); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// zapAdapter adapts the sugared zap logger to the HTTP layer's Logger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

func (a *zapAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.s.Infow(msg, keysAndValues...)
}

func (a *zapAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.s.Errorw(msg, keysAndValues...)
}
