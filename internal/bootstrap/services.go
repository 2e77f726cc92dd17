package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuskit/courserestore/config"
	"github.com/campuskit/courserestore/internal/adapters/completion"
	"github.com/campuskit/courserestore/internal/adapters/engine/httpengine"
	"github.com/campuskit/courserestore/internal/adapters/restorerunner"
	"github.com/campuskit/courserestore/internal/archive"
	"github.com/campuskit/courserestore/internal/core"
	"github.com/campuskit/courserestore/internal/data"
	"github.com/campuskit/courserestore/internal/observability/statsd"
	"github.com/campuskit/courserestore/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Restores      *service.RestoreService
	Completions   *service.CompletionService
	Status        *service.StatusService
	Backups       *service.BackupService
	Dispatcher    *service.CallbackDispatcher
	Tasks         core.TaskRepository
	Jobs          core.RestoreJobRepository
	Bus           core.CompletionBus
	Engine        core.RestoreEngine
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB            *sql.DB
	Redis         redis.UniversalClient
	JobRepo       *data.RestoreJobRepo
	CourseRepo    *data.CourseRepo
	TaskRepo      *data.TaskRepo
	Bus           *data.CompletionBus
	ProgressCache *data.RedisProgressCache
}

// buildObservability configures the metrics adapter.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "courserestore",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps, logger *slog.Logger) *serviceRepositories {
	retryDelay := time.Duration(0)
	progressTTL := time.Duration(0)
	if deps.Config != nil {
		retryDelay = deps.Config.Runner.RetryDelay
		progressTTL = deps.Config.Redis.ProgressTTL
	}

	var progressCache *data.RedisProgressCache
	if deps.RedisClient != nil {
		progressCache = data.NewRedisProgressCache(deps.RedisClient, progressTTL)
	}

	return &serviceRepositories{
		DB:            deps.DB,
		Redis:         deps.RedisClient,
		JobRepo:       data.NewRestoreJobRepo(deps.DB, data.RestoreJobRepoConfig{Logger: logger}),
		CourseRepo:    data.NewCourseRepo(deps.DB, nil),
		TaskRepo:      data.NewTaskRepo(deps.DB, data.TaskRepoConfig{RetryDelay: retryDelay, Logger: logger}),
		Bus:           data.NewCompletionBus(deps.DB, logger),
		ProgressCache: progressCache,
	}
}

// buildArchiveStore selects the archive backend from configuration.
//
//nolint:ireturn // returning core.ArchiveStore lets config pick local or s3 storage at runtime.
func buildArchiveStore(ctx context.Context, cfg config.ArchiveConfig) (core.ArchiveStore, error) {
	if cfg.Backend == config.ArchiveBackendS3 {
		store, err := archive.NewS3Store(ctx, archive.S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("build s3 archive store: %w", err)
		}
		return store, nil
	}

	store, err := archive.NewLocalStore(cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("build local archive store: %w", err)
	}
	return store, nil
}

// callbackConfigFromApp maps environment configuration onto the dispatcher config.
func callbackConfigFromApp(cfg config.CallbackConfig) service.CallbackConfig {
	maxAccepted := cfg.MaxAcceptedStatus
	return service.CallbackConfig{
		HeaderName:  cfg.HeaderName,
		HeaderValue: cfg.HeaderValue,
		Timeout:     cfg.Timeout,
		AcceptStatus: func(status int) bool {
			return status < maxAccepted
		},
	}
}

// NewServices builds the full service container.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service deps are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
		appCfg.Sanitize()
	}

	observability := buildObservability(logger, appCfg.Observability)
	repos := buildRepositories(deps, logger)

	archives, err := buildArchiveStore(ctx, appCfg.Archive)
	if err != nil {
		return ServiceContainer{}, err
	}

	engine, err := httpengine.New(httpengine.Options{
		BaseURL: appCfg.Engine.BaseURL,
		Token:   appCfg.Engine.Token,
		HTTPClient: &http.Client{
			Timeout: appCfg.Engine.Timeout,
		},
		PollInterval: appCfg.Engine.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build engine client: %w", err)
	}

	callbackCfg := callbackConfigFromApp(appCfg.Callback)
	dispatcher, err := service.NewCallbackDispatcher(service.CallbackDispatcherOptions{
		Config: callbackCfg,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build callback dispatcher: %w", err)
	}

	restores, err := service.NewRestoreService(service.RestoreServiceOptions{
		Jobs:                repos.JobRepo,
		Courses:             repos.CourseRepo,
		Tasks:               repos.TaskRepo,
		Engine:              engine,
		Archives:            archives,
		WorkRoot:            appCfg.WorkRoot,
		RequireCallbackAuth: appCfg.Callback.RequireAuth,
		CallbackConfig:      callbackCfg,
		Logger:              logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build restore service: %w", err)
	}

	var metricsSink statsd.Sink
	if observability.MetricsSink != nil {
		metricsSink = observability.MetricsSink
	}

	completions, err := service.NewCompletionService(service.CompletionServiceOptions{
		Jobs:       repos.JobRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build completion service: %w", err)
	}

	var cache core.ProgressCache
	if repos.ProgressCache != nil {
		cache = repos.ProgressCache
	}
	status, err := service.NewStatusService(service.StatusServiceOptions{
		Jobs:   repos.JobRepo,
		Engine: engine,
		Cache:  cache,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build status service: %w", err)
	}

	backups, err := service.NewBackupService(service.BackupServiceOptions{
		Courses:  repos.CourseRepo,
		Engine:   engine,
		Archives: archives,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build backup service: %w", err)
	}

	return ServiceContainer{
		Restores:      restores,
		Completions:   completions,
		Status:        status,
		Backups:       backups,
		Dispatcher:    dispatcher,
		Tasks:         repos.TaskRepo,
		Jobs:          repos.JobRepo,
		Bus:           repos.Bus,
		Engine:        engine,
		Observability: observability,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newRestoreRunnerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeRestoreRunner,
		name: "restore runner",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			lease := time.Duration(0)
			concurrency := 0
			if deps.cfg.Config != nil {
				lease = deps.cfg.Config.Runner.TaskLease
				concurrency = deps.cfg.Config.Runner.Concurrency
			}
			var metrics statsd.Sink
			if deps.cfg.Services.Observability.MetricsSink != nil {
				metrics = deps.cfg.Services.Observability.MetricsSink
			}
			runner, err := restorerunner.New(restorerunner.Options{
				Tasks:       deps.cfg.Services.Tasks,
				Engine:      deps.cfg.Services.Engine,
				Bus:         deps.cfg.Services.Bus,
				Lease:       lease,
				Concurrency: concurrency,
				Logger:      deps.logger,
				Metrics:     metrics,
			})
			if err != nil {
				return err
			}
			return runner.Run(ctx)
		},
	}
}

func newCompletionListenerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeCompletionListener,
		name: "completion listener",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			listener, err := completion.New(completion.Options{
				Bus:     deps.cfg.Services.Bus,
				Handler: deps.cfg.Services.Completions,
				Jobs:    deps.cfg.Services.Jobs,
				Engine:  deps.cfg.Services.Engine,
				Logger:  deps.logger,
			})
			if err != nil {
				return err
			}
			return listener.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newRestoreRunnerBackgroundService(deps),
		newCompletionListenerBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		metrics:     cfg.Services.Observability.MetricsSink,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	modes := []config.ServiceMode{
		config.ServiceModeHTTP,
		config.ServiceModeRestoreRunner,
		config.ServiceModeCompletionListener,
	}

	count := 0
	for _, mode := range modes {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	metrics     *statsd.Client
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	// Flush the metrics socket last
	if cfg.metrics != nil {
		if err := cfg.metrics.Close(); err != nil {
			cfg.logger.Warn("close metrics client", "error", err)
		}
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
