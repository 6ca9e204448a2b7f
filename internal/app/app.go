package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/jobcontrol"
	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/server"
	"dev.rubentxu.background-orchestrator/internal/adapters/logger"
	"dev.rubentxu.background-orchestrator/internal/adapters/process"
	"dev.rubentxu.background-orchestrator/internal/adapters/resource"
	"dev.rubentxu.background-orchestrator/internal/adapters/rest"
	"dev.rubentxu.background-orchestrator/internal/adapters/store"
	"dev.rubentxu.background-orchestrator/internal/config"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// stopTimeout bounds the graceful stop of each listener.
const stopTimeout = 5 * time.Second

// App is the orchestrator daemon: the orchestrator plus its gRPC and HTTP
// control planes.
type App struct {
	cfg    config.Config
	logger ports.Logger
	orch   *usecase.Orchestrator

	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
}

// Build wires every component from cfg. Nothing listens until Run.
func Build(cfg config.Config, log ports.Logger) *App {
	orch := usecase.NewOrchestrator(
		cfg.UsecaseConfig(),
		store.NewMemoryJobRegistry(cfg.Orchestrator.OutputLimitBytes),
		process.NewExecLauncher(log),
		resource.NewProcReader(""),
		log,
	)

	gs, hs := server.NewGRPCServer(server.NewJobControlServer(orch, log), log)
	return &App{
		cfg:        cfg,
		logger:     log.With("component", "app"),
		orch:       orch,
		grpcServer: gs,
		health:     hs,
		httpServer: &http.Server{
			Handler:           rest.NewHandler(orch, log).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// New builds the zap logger described by cfg and then the App.
func New(cfg config.Config) (*App, error) {
	log, err := logger.NewZapLogger(cfg.LoggerOptions())
	if err != nil {
		return nil, err
	}
	return Build(cfg, log), nil
}

func (a *App) Orchestrator() *usecase.Orchestrator { return a.orch }

func (a *App) Logger() ports.Logger { return a.logger }

// Run serves the configured listeners until ctx ends or one of them fails,
// then shuts everything down. An empty address disables that listener.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if addr := a.cfg.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", addr)
		}
		a.logger.Info("gRPC control plane listening", "addr", lis.Addr().String())
		go func() {
			if err := a.grpcServer.Serve(lis); err != nil {
				errCh <- errors.Wrap(err, "gRPC server failed")
			}
		}()
	}

	if addr := a.cfg.Server.HTTPAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			a.grpcServer.Stop()
			return errors.Wrapf(err, "failed to listen on %s", addr)
		}
		a.logger.Info("HTTP control plane listening", "addr", lis.Addr().String())
		go func() {
			if err := a.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- errors.Wrap(err, "HTTP server failed")
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case runErr = <-errCh:
		a.logger.Error("listener failed", "error", runErr)
	}

	if err := a.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops the orchestrator first, which also ends open Watch
// streams, and then the listeners.
func (a *App) Shutdown(ctx context.Context) error {
	a.health.SetServingStatus(jobcontrol.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	err := a.orch.Shutdown(ctx)

	stopped := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(stopTimeout):
		a.logger.Warn("gRPC graceful stop timed out, forcing")
		a.grpcServer.Stop()
	}

	httpCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if herr := a.httpServer.Shutdown(httpCtx); herr != nil && err == nil {
		err = errors.Wrap(herr, "HTTP shutdown failed")
	}

	a.logger.Info("daemon stopped")
	return err
}
