package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/turbekoff/deccalc/pkg/calculator"
	"github.com/turbekoff/deccalc/pkg/env"
)

type Config struct {
	BotToken                string        `env:"CALCBOT_TELEGRAM_TOKEN,required"`
	BotOffset               int           `env:"CALCBOT_TELEGRAM_OFFSET" env-default:"20"`
	BotTimeout              int           `env:"CALCBOT_TELEGRAM_TIMEOUT" env-default:"60"`
	MaxDigits               int           `env:"CALCBOT_MAX_DIGITS" env-default:"28"`
	MemcachedTTLTimeout     time.Duration `env:"CALCBOT_MEMCACHED_TTL_TIMEOUT" env-default:"20m"`
	MemcachedCleanupTimeout time.Duration `env:"CALCBOT_MEMCACHED_CLEANUP_TIMEOUT" env-default:"1m"`
	ShutdownTimeout         time.Duration `env:"CALCBOT_SHUTDOWN_TIMEOUT" env-default:"2m"`
	LogLevel                logrus.Level  `env:"CALCBOT_LOG_LEVEL" env-default:"info"`
	SessionStore            string        `env:"CALCBOT_SESSION_STORE" env-default:"memory"`
	RedisURL                string        `env:"CALCBOT_REDIS_URL" env-default:"redis://localhost:6379/0"`
	MetricsAddr             string        `env:"CALCBOT_METRICS_ADDR"`
	AllowedChats            []int64       `env:"CALCBOT_ALLOWED_CHATS"`
}

// LoadConfig reads the optional dotenv file named by CALCBOT_ENV_FILE
// (".env" by default) and then the environment. Real variables win.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CALCBOT_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := env.Read(&cfg); err != nil {
		return nil, err
	}
	if cfg.MaxDigits < 1 || cfg.MaxDigits > calculator.MaxDigitsLimit {
		return nil, calculator.ErrInvalidDigits
	}
	return &cfg, nil
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	config, err := LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	logger.SetLevel(config.LogLevel)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sessions, err := OpenSessionStore(ctx, config)
	if err != nil {
		logger.WithError(err).Fatal("failed to open session store")
	}

	metrics := NewMetrics("calcbot")
	if config.MetricsAddr != "" {
		go func() {
			logger.WithField("addr", config.MetricsAddr).Info("serving metrics")
			if err := metrics.Serve(ctx, config.MetricsAddr); err != nil {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	bot, err := LoadBot(config, sessions, metrics, logger.WithField("component", "bot"))
	if err != nil {
		logger.WithError(err).Fatal("failed to connect telegram")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithFields(logrus.Fields{
			"store":      config.SessionStore,
			"max_digits": config.MaxDigits,
		}).Info("starting telegram bot")
		if err := bot.Run(); !errors.Is(err, ErrClosed) {
			logger.WithError(err).Error("failed to start telegram bot")
		}
		quit <- os.Interrupt
	}()

	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	logger.Info("stopping telegram bot")
	if err := bot.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to graceful shutdown telegram bot")
	}
	stop()
	logger.Info("telegram bot stopped")
}
