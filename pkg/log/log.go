package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger

// FileOptions enables a rotated copy of the log on disk.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func InitProd() *zap.Logger {
	return initLogger(zap.NewProductionConfig(), nil)
}

func InitDev() *zap.Logger {
	return initLogger(zap.NewDevelopmentConfig(), nil)
}

// Init picks the production or development preset and optionally tees output into a rotated file.
func Init(production bool, file *FileOptions) *zap.Logger {
	if production {
		return initLogger(zap.NewProductionConfig(), file)
	}
	return initLogger(zap.NewDevelopmentConfig(), file)
}

func initLogger(config zap.Config, file *FileOptions) *zap.Logger {
	var err error
	logger, err = config.Build(zap.AddStacktrace(zap.WarnLevel))
	if err != nil {
		fmt.Printf("Failed to init zap logger: %v", err)
		os.Exit(1)
	}

	if file != nil && file.Path != "" {
		rotated := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
		})
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			rotated,
			config.Level,
		)
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	zap.ReplaceGlobals(logger)
	return logger
}

func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
