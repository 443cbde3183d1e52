package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	req.NoError(err)
	req.Equal("bolt", cfg.StoreDriver)
	req.Equal([]string{"blue", "red"}, cfg.RoomList())
	req.Equal(slog.LevelInfo, cfg.Level())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("DUOCHAT_STORE", "memory")
	t.Setenv("DUOCHAT_STORE_PATH", "")
	t.Setenv("DUOCHAT_ROOMS", " green , ,green,blue")
	t.Setenv("DUOCHAT_LOG_LEVEL", "debug")
	t.Setenv("DUOCHAT_MAX_MESSAGE_LENGTH", "42")

	cfg, err := Load()
	req.NoError(err)
	req.Equal("memory", cfg.StoreDriver)
	req.Equal([]string{"green", "blue"}, cfg.RoomList())
	req.Equal(slog.LevelDebug, cfg.Level())
	req.Equal(42, cfg.MaxMessageLength)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	req := require.New(t)

	cfg := Default()
	cfg.StoreDriver = "sqlite"
	req.Error(cfg.Validate())

	cfg = Default()
	cfg.StorePath = ""
	req.Error(cfg.Validate())

	cfg = Default()
	cfg.LogLevel = "loud"
	req.Error(cfg.Validate())
}
