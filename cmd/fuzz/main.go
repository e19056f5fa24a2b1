package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bigredeye/gradebook/pkg/client/gradebook"
)

var log *zap.Logger

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func unwrap[T any](value T, err error) T {
	check(err)
	return value
}

func GenerateTables(dir string, files int, opts tableOptions, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))

	for i := 0; i < files; i++ {
		path := filepath.Join(dir, fmt.Sprintf("scores-%03d.csv", i))
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		corrupted, err := generateTable(rng, file, opts)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		log.Info("Generated table", zap.String("path", path), zap.Int("rows", opts.Rows), zap.Int("corrupted", corrupted))
	}
	return nil
}

type uploadTotals struct {
	uploads   atomic.Int64
	rejected  atomic.Int64
	corrupted atomic.Int64
	bytes     atomic.Int64
}

func UploadTables(ctx context.Context, client *gradebook.Client, files, parallel int, opts tableOptions, seed int64) (*uploadTotals, error) {
	sema := semaphore.NewWeighted(int64(parallel))
	g, ctx := errgroup.WithContext(ctx)
	totals := &uploadTotals{}

	for i := 0; i < files; i++ {
		if err := sema.Acquire(ctx, 1); err != nil {
			break
		}

		i := i
		g.Go(func() error {
			defer sema.Release(1)

			body := bytes.Buffer{}
			corrupted, err := generateTable(rand.New(rand.NewSource(seed+int64(i))), &body, opts)
			if err != nil {
				return err
			}
			totals.corrupted.Add(int64(corrupted))
			totals.bytes.Add(int64(body.Len()))

			name := fmt.Sprintf("fuzz-%03d.csv", i)
			err = client.Upload(name, &body)
			totals.uploads.Inc()

			var serverErr *gradebook.Error
			switch {
			case err == nil && corrupted > 0:
				return fmt.Errorf("upload %s with %d corrupted rows was accepted", name, corrupted)
			case err == nil:
				log.Debug("Uploaded", zap.String("file", name))
			case errors.As(err, &serverErr) && corrupted > 0:
				totals.rejected.Inc()
				log.Debug("Upload rejected as expected", zap.String("file", name), zap.String("msg", serverErr.Msg))
			default:
				return fmt.Errorf("upload %s failed: %w", name, err)
			}
			return nil
		})
	}

	log.Info("Waiting for uploads to complete", zap.Int("count", files))
	return totals, g.Wait()
}

var (
	args struct {
		Endpoint    string
		Token       string
		Files       int
		Rows        int
		Classes     int
		Parallel    int
		CorruptRate float64
		Seed        int64
		Dir         string
		BotToken    string
		Chat        int64
	}

	RootCmd = &cobra.Command{
		Use:   "fuzz",
		Short: "Throw synthetic score tables at the ingestion endpoint",
	}

	GenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic score tables to a directory",
		RunE: func(cmd *cobra.Command, _args []string) error {
			return GenerateTables(args.Dir, args.Files, makeTableOptions(), args.Seed)
		},
	}

	UploadCmd = &cobra.Command{
		Use:   "upload",
		Short: "Upload synthetic score tables concurrently",
		RunE: func(cmd *cobra.Command, _args []string) error {
			client, err := gradebook.NewClient(args.Endpoint, args.Token)
			if err != nil {
				return err
			}
			reporter, err := NewReporter(args.BotToken, args.Chat)
			if err != nil {
				return err
			}

			start := time.Now()
			totals, err := UploadTables(cmd.Context(), client, args.Files, args.Parallel, makeTableOptions(), args.Seed)
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("Uploaded %d tables (%s) in %s, %d rejected with %d corrupted rows",
				totals.uploads.Load(),
				units.HumanSize(float64(totals.bytes.Load())),
				time.Since(start).Round(time.Millisecond),
				totals.rejected.Load(),
				totals.corrupted.Load(),
			)
			log.Info(summary)

			stats, err := client.LoadStats()
			if err == nil {
				log.Info("Server stats",
					zap.Int64("uploads", stats.Uploads),
					zap.Int64("failed_uploads", stats.FailedUploads),
					zap.Int64("rows_inserted", stats.RowsInserted),
					zap.Int64("rows_failed", stats.RowsFailed),
				)
			} else {
				log.Warn("Failed to load server stats", zap.Error(err))
			}

			return reporter.Report(summary, stats)
		},
	}
)

func makeTableOptions() tableOptions {
	return tableOptions{Rows: args.Rows, Classes: args.Classes, CorruptRate: args.CorruptRate}
}

func initLogging() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.ConsoleSeparator = " "
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.StampMilli)
	log = unwrap(config.Build())
}

func initCommands() {
	RootCmd.PersistentFlags().IntVar(&args.Files, "files", 10, "Number of tables")
	RootCmd.PersistentFlags().IntVar(&args.Rows, "rows", 1000, "Rows per table")
	RootCmd.PersistentFlags().IntVar(&args.Classes, "classes", 4, "Classes per grade")
	RootCmd.PersistentFlags().Float64Var(&args.CorruptRate, "corrupt-rate", 0, "Share of corrupted rows")
	RootCmd.PersistentFlags().Int64Var(&args.Seed, "seed", 42, "Random seed")

	GenerateCmd.Flags().StringVar(&args.Dir, "dir", "tables", "Output directory")

	UploadCmd.Flags().StringVar(&args.Endpoint, "endpoint", "http://localhost:5000", "Gradebook endpoint")
	UploadCmd.Flags().StringVar(&args.Token, "token", os.Getenv("GRADEBOOK_TOKEN"), "Session token")
	UploadCmd.Flags().IntVar(&args.Parallel, "parallel", 8, "Concurrent uploads")
	UploadCmd.Flags().StringVar(&args.BotToken, "bot-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token for the summary")
	UploadCmd.Flags().Int64Var(&args.Chat, "chat", 0, "Telegram chat for the summary")

	RootCmd.AddCommand(GenerateCmd)
	RootCmd.AddCommand(UploadCmd)
}

func init() {
	initLogging()
	initCommands()
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s\n", err.Error())
		os.Exit(1)
	}
}
