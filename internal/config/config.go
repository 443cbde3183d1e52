// Package config loads the settings shared by the relay server and the chat client.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	confDir = ".duochat"
	dbFile  = "duochat.db"
)

// Config fields left unset in the environment keep the values from Default.
type Config struct {
	Addr             string `env:"DUOCHAT_ADDR" validate:"required"`
	ServerURL        string `env:"DUOCHAT_SERVER_URL" validate:"required,url"`
	StoreDriver      string `env:"DUOCHAT_STORE" validate:"oneof=bolt badger memory"`
	StorePath        string `env:"DUOCHAT_STORE_PATH" validate:"required_unless=StoreDriver memory"`
	Rooms            string `env:"DUOCHAT_ROOMS" validate:"required"`
	LogLevel         string `env:"DUOCHAT_LOG_LEVEL" validate:"oneof=DEBUG INFO WARN ERROR"`
	LogFile          string `env:"DUOCHAT_LOG_FILE"`
	MaxMessageLength int    `env:"DUOCHAT_MAX_MESSAGE_LENGTH" validate:"gt=0"`
	RoomCapacity     int    `env:"DUOCHAT_ROOM_CAPACITY" validate:"gt=0"`
}

func Default() Config {
	dir := confDir
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, confDir)
	}
	return Config{
		Addr:             ":8080",
		ServerURL:        "ws://localhost:8080/ws",
		StoreDriver:      "bolt",
		StorePath:        filepath.Join(dir, dbFile),
		Rooms:            "blue,red",
		LogLevel:         "INFO",
		LogFile:          filepath.Join(dir, "duochat.log"),
		MaxMessageLength: 2000,
		RoomCapacity:     128,
	}
}

// Load reads an optional .env file, then the environment, on top of Default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config error: %w", err)
	}

	cfg := Default()
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate normalises the log level and checks every field.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// RoomList splits Rooms on commas, dropping blanks and duplicates.
func (c Config) RoomList() []string {
	rooms := lo.Map(strings.Split(c.Rooms, ","), func(r string, _ int) string {
		return strings.TrimSpace(r)
	})
	return lo.Uniq(lo.Compact(rooms))
}

func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
