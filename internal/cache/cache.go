// Package cache stores short-lived upstream responses, such as geocoding
// results, behind a small byte-oriented interface.
//
// Two backends are provided: Memory for single-process deployments and Redis
// for deployments that run several replicas. A nil Cache is never passed
// around; use Noop when caching is disabled.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Cache is a byte cache with per-entry expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. A ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases backend resources.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Driver is "memory", "redis" or "none".
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// KeyPrefix namespaces keys in shared backends.
	KeyPrefix string
}

// New builds the backend named by opts.Driver.
func New(opts Options) (Cache, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		if opts.RedisAddr == "" {
			return nil, eris.New("cache: redis driver requires an address")
		}
		return NewRedis(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.KeyPrefix), nil
	case "none":
		return Noop{}, nil
	default:
		return nil, eris.Errorf("cache: unknown driver %q", opts.Driver)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Close() error { return nil }
