// Package storage provides the local key-value slot the chat feed is mirrored to.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
)

// Driver names accepted by Open.
const (
	DriverBolt   = "bolt"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// KV is a flat key-value store. Get returns (nil, nil) for a missing key.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// Open returns the KV for the given driver. path is ignored by the memory driver.
func Open(driver, path string, log *slog.Logger) (KV, error) {
	switch driver {
	case DriverBolt:
		return OpenBolt(path)
	case DriverBadger:
		return OpenBadger(path, log)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
