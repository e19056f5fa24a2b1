package web

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/gradebook/internal/blobs"
	"github.com/bigredeye/gradebook/internal/config"
	"github.com/bigredeye/gradebook/internal/database"
	inmemdb "github.com/bigredeye/gradebook/internal/database/inmem"
	"github.com/bigredeye/gradebook/internal/ingest"
	"github.com/bigredeye/gradebook/internal/notify"
	"github.com/bigredeye/gradebook/internal/records"
)

type storage interface {
	records.Store
	records.Identities
}

func openStorage(config *config.Config, logger *zap.Logger) (storage, error) {
	if config.DataBase.InMemory {
		logger.Warn("Using in-memory storage, everything is lost on exit")
		return inmemdb.Open(), nil
	}
	db, err := database.OpenDataBase(logger, config.DataBaseDSN(), config.DataBase.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Run(config *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStorage(config, logger)
	if err != nil {
		return errors.Wrap(err, "Failed to open database")
	}

	uploads, err := blobs.NewStorage(config.Uploads.Dir)
	if err != nil {
		return err
	}

	var pipeline *ingest.Pipeline
	options := ingest.Options{
		BatchSize:   config.Uploads.BatchSize,
		MaxInFlight: config.Uploads.MaxInFlight,
	}

	bot, err := notify.NewTelegram(config, logger, func() ingest.Stats { return pipeline.Stats() })
	if err != nil {
		return errors.Wrap(err, "Failed to start telegram bot")
	}
	if bot != nil {
		options.Notifier = bot
		go bot.Run(ctx)
	}

	pipeline = ingest.NewPipeline(db, uploads, logger, options)

	s, err := newServer(config, logger, db, db, pipeline)
	if err != nil {
		return errors.Wrap(err, "Failed to start server")
	}

	err = s.run(ctx)
	pipeline.Wait()
	return errors.Wrap(err, "Server failed")
}
