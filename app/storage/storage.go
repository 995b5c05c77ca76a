package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// Storage is a byte-oriented key-value store. A ttl of zero means the entry
// never expires.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	Kind     Kind
	DBPath   string
	RedisURL string
}

func New(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemory(), nil
	case KindSQLite:
		return NewSQLite(opts.DBPath)
	case KindRedis:
		return NewRedis(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Kind)
	}
}
