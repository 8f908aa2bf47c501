package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"NewsForge/internal/app"
	"NewsForge/internal/config"
	"NewsForge/internal/logging"
	"NewsForge/internal/usecase"
)

func main() {
	step := flag.String("step", "", "run a single stage: collect|process|insights|generate (empty runs the full chain)")
	agent := flag.String("agent", "", "restrict collect to one named source")
	force := flag.Bool("force", false, "regenerate clusters whose valid article already exists")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	req := usecase.Request{Step: *step, Agent: *agent, Force: *force}
	if err := application.Run(ctx, req); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}
