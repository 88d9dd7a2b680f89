// Package cache stores rendered dashboard responses keyed by dataset.
//
// Keys are namespaced as <prefix>:<scope>:<panel>[:<part>...], where scope
// is a feedstock name or "_global" for cross-feedstock panels. Loading new
// data for a feedstock drops its scope and the global scope together.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"erwpulse/internal/config"
)

// GlobalScope holds panels that span feedstocks, such as the registry.
const GlobalScope = "_global"

// Cache is a byte cache with scope invalidation. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Keys builds cache keys under one namespace.
type Keys struct {
	Prefix string
}

// Dataset keys a panel computed for one feedstock.
func (k Keys) Dataset(feedstock, panel string, parts ...any) string {
	return k.join(feedstock, panel, parts)
}

// Global keys a panel that spans feedstocks.
func (k Keys) Global(panel string, parts ...any) string {
	return k.join(GlobalScope, panel, parts)
}

// Scope is the key prefix shared by every key of scope.
func (k Keys) Scope(scope string) string {
	return k.Prefix + ":" + escape(scope) + ":"
}

func (k Keys) join(scope, panel string, parts []any) string {
	var b strings.Builder
	b.WriteString(k.Scope(scope))
	b.WriteString(panel)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(escape(fmt.Sprint(p)))
	}
	return b.String()
}

// escape keeps user-supplied names from forging other scopes or glob
// patterns.
func escape(s string) string {
	return strings.NewReplacer(":", "%3A", "*", "%2A", "?", "%3F", "[", "%5B", "]", "%5D").Replace(s)
}

// InvalidateFeedstock drops everything cached for feedstock and every
// global panel.
func InvalidateFeedstock(ctx context.Context, c Cache, keys Keys, feedstock string) error {
	if err := c.DeletePrefix(ctx, keys.Scope(feedstock)); err != nil {
		return err
	}
	return c.DeletePrefix(ctx, keys.Scope(GlobalScope))
}

// GetJSON decodes a cached value into dst. Undecodable entries count as
// misses.
func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it.
func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.Set(ctx, key, raw)
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (Cache, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		return Noop{}, nil
	case config.CacheMemory:
		return NewMemory(cfg.TTL, defaultMaxEntries), nil
	case config.CacheRedis:
		return NewRedis(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error          { return nil }
func (Noop) DeletePrefix(context.Context, string) error         { return nil }
func (Noop) Close() error                                       { return nil }
