package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dev.rubentxu.background-orchestrator/internal/adapters/logger"
	"dev.rubentxu.background-orchestrator/internal/app"
	"dev.rubentxu.background-orchestrator/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// re-invoked by the orchestrator to run one background command
	if app.IsWorkerInvocation(os.Args, app.WorkerMarker(os.LookupEnv)) {
		log, err := logger.NewZapLogger(logger.Options{Level: os.Getenv(config.EnvLogLevel)})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		code := app.RunWorker(ctx, os.Args, log)
		_ = log.Sync()
		stop()
		os.Exit(code)
	}

	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	// 1. Cargar configuración
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Construir el orquestador y los planos de control
	daemon, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building daemon: %v\n", err)
		os.Exit(1)
	}

	// 3. Servir hasta recibir una señal
	daemon.Logger().Info("orchestrator starting", "grpc_addr", cfg.Server.GRPCAddr, "http_addr", cfg.Server.HTTPAddr)
	if err := daemon.Run(ctx); err != nil {
		daemon.Logger().Error("orchestrator stopped with error", "error", err)
		_ = daemon.Logger().Sync()
		os.Exit(1)
	}
	_ = daemon.Logger().Sync()
}
