package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/noah-isme/trs-ewc-import/api/swagger"
	"github.com/noah-isme/trs-ewc-import/internal/handler"
	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/internal/repository"
	"github.com/noah-isme/trs-ewc-import/internal/service"
	"github.com/noah-isme/trs-ewc-import/pkg/cache"
	"github.com/noah-isme/trs-ewc-import/pkg/config"
	"github.com/noah-isme/trs-ewc-import/pkg/database"
	"github.com/noah-isme/trs-ewc-import/pkg/jobs"
	"github.com/noah-isme/trs-ewc-import/pkg/logger"
	"github.com/noah-isme/trs-ewc-import/pkg/storage"
)

// @title TRS EWC Wales Import API
// @version 1.0.0
// @description Imports EWC Wales induction and QTS files into the Teaching Record System.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const tokenIssuer = "trs-ewc-import"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	auth := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: tokenIssuer})

	// ewc-import token <operator-id> [role] prints a signed operator token for local use.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printToken(auth, os.Args[2:]); err != nil {
			logr.Fatal("issue token", zap.Error(err))
		}
		return
	}

	if err := run(cfg, logr, auth); err != nil {
		logr.Fatal("ewc import service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger, auth *service.AuthService) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	} else {
		logr.Warn("redis disabled, import runs are not serialised across replicas")
	}

	files, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	begin := service.NewImportTxBeginner(repository.NewTxManager(db))
	induction := service.NewInductionImportService(begin, metrics, logr.Named("induction"))
	qts := service.NewQtsImportService(begin, metrics, logr.Named("qts"), cfg.EWC.QtsCutoverDate)
	fileService := service.NewEwcImportFileService(files, induction, qts, metrics, logr, service.EwcImportFileConfig{
		PickupContainer:  cfg.EWC.PickupContainer,
		PickupPrefix:     cfg.EWC.PickupPrefix,
		ArchiveContainer: cfg.EWC.ArchiveContainer,
		ArchivePrefix:    cfg.EWC.ArchivePrefix,
	})

	runner := service.NewImportRunner(fileService, repository.NewLockRepository(redisClient, logr), cfg.EWC.LockTTL, metrics, logr)
	queue := jobs.NewQueue("ewc-wales-import", runner.HandleJob, jobs.QueueConfig{Workers: 1, BufferSize: 1, MaxRetries: -1, Logger: logr})
	runner.UseQueue(queue)
	queue.Start(ctx)

	var scheduler *service.SchedulerService
	if cfg.EWC.SchedulerEnabled {
		scheduler = service.NewSchedulerService(runner, cfg.EWC.Schedule, logr)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
	}

	deps := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		deps["redis"] = handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := newRouter(cfg, logr, routes{
		auth:    auth,
		metrics: metrics,
		health:  handler.NewMetricsHandler(metrics, deps),
		ledger:  handler.NewIntegrationTransactionHandler(service.NewIntegrationTransactionService(repository.NewIntegrationTransactionRepository(db), nil, nil, logr)),
		imports: handler.NewImportHandler(runner),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	queue.Stop()
	return nil
}

func printToken(auth *service.AuthService, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: ewc-import token <operator-id> [ADMIN|SUPERADMIN]")
	}
	role := models.RoleAdmin
	if len(args) > 1 {
		role = models.UserRole(args[1])
	}
	if role != models.RoleAdmin && role != models.RoleSuperAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	token, expiresAt, err := auth.IssueToken(models.OperatorInfo{ID: args[0], Role: role})
	if err != nil {
		return err
	}
	fmt.Printf("%s\nexpires %s\n", token, expiresAt.Format(time.RFC3339))
	return nil
}
