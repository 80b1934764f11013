package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turbekoff/deccalc/pkg/calculator"
	"github.com/turbekoff/deccalc/pkg/env"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CALCBOT_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CALCBOT_TELEGRAM_TOKEN", "token")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "token", config.BotToken)
	assert.Equal(t, calculator.DefaultMaxDigits, config.MaxDigits)
	assert.Equal(t, 20*time.Minute, config.MemcachedTTLTimeout)
	assert.Equal(t, logrus.InfoLevel, config.LogLevel)
	assert.Equal(t, StoreMemory, config.SessionStore)
	assert.Empty(t, config.MetricsAddr)
	assert.Empty(t, config.AllowedChats)
}

func TestLoadConfigFromDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calcbot.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"CALCBOT_TELEGRAM_TOKEN=from-file\nCALCBOT_MAX_DIGITS=12\nCALCBOT_LOG_LEVEL=debug\n",
	), 0o600))

	t.Setenv("CALCBOT_ENV_FILE", path)
	t.Setenv("CALCBOT_MAX_DIGITS", "10")
	t.Setenv("CALCBOT_ALLOWED_CHATS", "42,-100200")
	// godotenv writes through os.Setenv; t.Setenv restores these afterwards.
	t.Setenv("CALCBOT_TELEGRAM_TOKEN", "")
	os.Unsetenv("CALCBOT_TELEGRAM_TOKEN")
	t.Setenv("CALCBOT_LOG_LEVEL", "")
	os.Unsetenv("CALCBOT_LOG_LEVEL")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-file", config.BotToken)
	assert.Equal(t, 10, config.MaxDigits)
	assert.Equal(t, logrus.DebugLevel, config.LogLevel)
	assert.Equal(t, []int64{42, -100200}, config.AllowedChats)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("CALCBOT_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("CALCBOT_TELEGRAM_TOKEN", "")
	os.Unsetenv("CALCBOT_TELEGRAM_TOKEN")
	_, err := LoadConfig()
	assert.ErrorIs(t, err, env.ErrRequired)

	t.Setenv("CALCBOT_TELEGRAM_TOKEN", "token")
	t.Setenv("CALCBOT_MAX_DIGITS", "0")
	_, err = LoadConfig()
	assert.ErrorIs(t, err, calculator.ErrInvalidDigits)

	t.Setenv("CALCBOT_MAX_DIGITS", "1001")
	_, err = LoadConfig()
	assert.ErrorIs(t, err, calculator.ErrInvalidDigits)

	t.Setenv("CALCBOT_MAX_DIGITS", "12")
	t.Setenv("CALCBOT_ALLOWED_CHATS", "42,general")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "CALCBOT_ALLOWED_CHATS")
	t.Setenv("CALCBOT_ALLOWED_CHATS", "")

	t.Setenv("CALCBOT_MAX_DIGITS", "12")
	t.Setenv("CALCBOT_LOG_LEVEL", "loud")
	_, err = LoadConfig()
	var parseErr *env.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "CALCBOT_LOG_LEVEL", parseErr.Name)
}
