package main

import (
	"flag"
	"log"

	_ "github.com/joho/godotenv/autoload"

	"github.com/bigredeye/gradebook/internal/config"
	"github.com/bigredeye/gradebook/internal/web"
	zlog "github.com/bigredeye/gradebook/pkg/log"
)

var configPath = flag.String("config", "", "Path to the config file, env only if empty")

func run() error {
	flag.Parse()

	conf, err := config.ParseConfig(*configPath)
	if err != nil {
		return err
	}

	logger := zlog.Init(conf.Log.Production, &zlog.FileOptions{
		Path:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
		MaxAgeDays: conf.Log.MaxAgeDays,
	})
	defer zlog.Sync()

	return web.Run(conf, logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
