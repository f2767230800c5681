package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medreport/internal/api"
	"medreport/internal/config"
	"medreport/internal/inference"
	"medreport/internal/logging"
	"medreport/internal/pipeline"
	"medreport/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("build logger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	cancel()

	// Artifacts load once at startup; a broken model directory is fatal.
	var predictor pipeline.Predictor
	if cfg.InferenceEnabled() {
		svc, err := inference.Load(cfg.ArtifactsDir)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.ArtifactsDir).Msg("load model artifacts")
		}
		predictor = svc
		logger.Info().Strs("classes", svc.Classes()).Msg("diagnosis enabled")
	}
	pipe := pipeline.New(pipeline.Options{Predictor: predictor, OutDir: cfg.ReportsDir(), Logger: &logger})

	var batches api.BatchRunner
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Warn().Err(err).Str("address", cfg.TemporalAddress).Msg("temporal unavailable, batch endpoints disabled")
	} else {
		defer tc.Close()
		batches = api.NewTemporalBatches(tc, cfg.TemporalTaskQueue)
	}

	s := api.NewServer(cfg, storage.NewReportRepo(db), pipe, batches, logger)
	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, release := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer release()
	go func() {
		<-stop.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.APIAddr).Bool("diagnosis", cfg.InferenceEnabled()).Msg("medreport api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("serve")
	}
}
