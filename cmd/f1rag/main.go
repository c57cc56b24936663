package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/f1-penalty-rag/internal/adapters/cli"
	"github.com/kirillkom/f1-penalty-rag/internal/bootstrap"
	"github.com/kirillkom/f1-penalty-rag/internal/config"
	"github.com/kirillkom/f1-penalty-rag/internal/observability/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := config.Load()
	// stdout carries reports and the MCP stream.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "f1rag", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	load := func(ctx context.Context) (*cli.Services, func(), error) {
		app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "cli"})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		return &cli.Services{Pipeline: app.Pipeline, Analyzer: app.QueryUC}, app.Close, nil
	}

	if err := cli.NewRootCmd(load).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
