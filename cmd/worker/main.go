package main

import (
	"context"
	"os"
	"time"

	"medreport/internal/activities"
	"medreport/internal/config"
	"medreport/internal/inference"
	"medreport/internal/logging"
	"medreport/internal/pipeline"
	"medreport/internal/storage"
	"medreport/internal/workflows"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
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

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("dial temporal")
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	var predictor pipeline.Predictor
	if cfg.InferenceEnabled() {
		svc, err := inference.Load(cfg.ArtifactsDir)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.ArtifactsDir).Msg("load model artifacts")
		}
		predictor = svc
	}
	activities.Register(w, activities.New(cfg, storage.NewReportRepo(db), predictor, logger))

	logger.Info().
		Str("address", cfg.TemporalAddress).
		Str("queue", cfg.TemporalTaskQueue).
		Bool("diagnosis", cfg.InferenceEnabled()).
		Msg("medreport worker listening")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}
