// Package main запускает сервис рассылки рыночного дайджеста.
//
// С флагом -run-once выполняется одна рассылка без HTTP-сервера,
// код выхода ненулевой, если прогон или хотя бы одна отправка не удались.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	marketdigest "github.com/magabrotheeeer/market-digest/internal/app/market-digest"
	"github.com/magabrotheeeer/market-digest/internal/config"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
)

func main() {
	runOnce := flag.Bool("run-once", false, "send one digest batch and exit")
	flag.Parse()

	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting market-digest", slog.String("env", cfg.Env), slog.Bool("run_once", *runOnce))
	logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := marketdigest.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if *runOnce {
		report := app.RunOnce(ctx)
		if report.FailedStage != "" || !report.Batch.OK() {
			logger.Error("digest run finished with errors",
				slog.String("stage", report.FailedStage),
				slog.Int("failed", report.Batch.Failed),
			)
			os.Exit(1)
		}
		logger.Info("digest run finished", slog.Int("succeeded", report.Batch.Succeeded))
		return
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("market-digest stopped gracefully")
}
