package config

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/pkg/errors"

	"github.com/bigredeye/gradebook/pkg/conf"
)

type Config struct {
	Server struct {
		ListenAddress string
		Cookies       struct {
			AuthenticationKey string
			EncryptionKey     string
			Secure            bool
		}
	}

	DataBase struct {
		// InMemory keeps everything in process memory instead of postgres.
		InMemory       bool
		Host           string
		Port           uint16
		User           string
		Pass           string
		Name           string
		ConnectTimeout time.Duration
	}

	Uploads struct {
		Dir         string
		MaxSize     string
		BatchSize   int
		MaxInFlight int
	}

	Sessions struct {
		// TokenTTL bounds how long a login token stays valid.
		TokenTTL  time.Duration
		CacheTTL  time.Duration
		CacheSize int64
	}

	Log struct {
		Production bool
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	Telegram struct {
		BotToken string
		ChatID   int64
	}
}

var defaults = map[string]interface{}{
	"Server.ListenAddress":    ":5000",
	"DataBase.Host":           "localhost",
	"DataBase.Port":           5432,
	"DataBase.User":           "postgres",
	"DataBase.Name":           "gradebook",
	"DataBase.ConnectTimeout": "1m",
	"Uploads.Dir":             "uploads",
	"Uploads.MaxSize":         "32MB",
	"Uploads.BatchSize":       200,
	"Uploads.MaxInFlight":     4,
	"Sessions.TokenTTL":       "168h",
	"Sessions.CacheTTL":       "5m",
	"Sessions.CacheSize":      1000,
	"Log.MaxSizeMB":           100,
	"Log.MaxBackups":          5,
	"Log.MaxAgeDays":          30,
}

func ParseConfig(path string) (*Config, error) {
	config := &Config{}
	err := conf.ParseConfig(config,
		conf.EnvPrefix("GRADEBOOK"),
		conf.ConfigFile(path),
		conf.Defaults(defaults),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse config")
	}
	if _, err := config.MaxUploadSize(); err != nil {
		return nil, err
	}
	return config, nil
}

// MaxUploadSize parses Uploads.MaxSize ("32MB", "1GiB", ...) into bytes.
func (c *Config) MaxUploadSize() (int64, error) {
	size, err := units.RAMInBytes(c.Uploads.MaxSize)
	if err != nil {
		return 0, errors.Wrapf(err, "Invalid upload size limit %q", c.Uploads.MaxSize)
	}
	return size, nil
}

func (c *Config) DataBaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DataBase.Host,
		c.DataBase.Port,
		c.DataBase.User,
		c.DataBase.Pass,
		c.DataBase.Name,
	)
}
