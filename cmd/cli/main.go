package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

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

var (
	endpoint string
	token    string

	rootCmd = &cobra.Command{
		Use:          "gradebook",
		Short:        "Gradebook client",
		SilenceUsage: true,
	}

	adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Inspect uploads and staff",
	}
)

func initLogging() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.ConsoleSeparator = " "
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.StampMilli)
	log = unwrap(config.Build())
}

func defaultEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func initCommands() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", defaultEnv("GRADEBOOK_ENDPOINT", "http://localhost:5000"), "Server address")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("GRADEBOOK_TOKEN"), "Session token, see the login command")

	adminCmd.AddCommand(makeAdminLogsCommand())
	adminCmd.AddCommand(makeAdminTeachersCommand())
	adminCmd.AddCommand(makeAdminStatsCommand())

	rootCmd.AddCommand(makeLoginCommand())
	rootCmd.AddCommand(makeRegisterCommand())
	rootCmd.AddCommand(makeUploadCommand())
	rootCmd.AddCommand(makeImportCommand())
	rootCmd.AddCommand(makeRecordsCommand())
	rootCmd.AddCommand(makeAnalyzeCommand())
	rootCmd.AddCommand(makeClassAnalysisCommand())
	rootCmd.AddCommand(makeSchoolAnalysisCommand())
	rootCmd.AddCommand(makeStatsCommand())
	rootCmd.AddCommand(adminCmd)
}

func newClient() (*gradebook.Client, error) {
	return gradebook.NewClient(endpoint, token)
}

func dump(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func init() {
	initLogging()
	initCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s\n", err.Error())
		os.Exit(1)
	}
}
