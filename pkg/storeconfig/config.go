// Package storeconfig defines the Store Facade's single configuration
// value (spec.md §6.4) and its presets. Loading follows the teacher's
// pkg/config.Load/LoadFile shape: defaults from Defaults(), optionally
// overlaid from a YAML file, using the same gopkg.in/yaml.v3 the teacher
// config package uses.
package storeconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unfazed-dev/nexus-store/internal/interceptor"
	"github.com/unfazed-dev/nexus-store/internal/pendingchange"
	"github.com/unfazed-dev/nexus-store/internal/policy"
	"github.com/unfazed-dev/nexus-store/internal/reliability"
)

// SyncMode enumerates how the store drives backend.Sync (spec.md §6.4).
type SyncMode string

const (
	SyncRealtime    SyncMode = "realtime"
	SyncPeriodic    SyncMode = "periodic"
	SyncManual      SyncMode = "manual"
	SyncEventDriven SyncMode = "eventDriven"
	SyncDisabled    SyncMode = "disabled"
)

// EvictionStrategy names the cache metadata index's eviction policy.
type EvictionStrategy string

const (
	EvictionLRU EvictionStrategy = "lru"
)

// CacheConfig bounds the cache metadata index's tracked-entry footprint.
type CacheConfig struct {
	MaxEntries int              `yaml:"max_entries"`
	MaxBytes   int64            `yaml:"max_bytes"`
	Eviction   EvictionStrategy `yaml:"eviction"`
}

// CircuitBreakerConfig is the YAML-facing mirror of
// reliability.BreakerConfig (spec.md §6.4).
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	HalfOpenProbes   int           `yaml:"half_open_probes"`
}

func (c CircuitBreakerConfig) toBreakerConfig() reliability.BreakerConfig {
	return reliability.BreakerConfig{MaxFailures: c.FailureThreshold, Timeout: c.ResetTimeout, HalfOpenMax: c.HalfOpenProbes}
}

// Config is the single configuration value per store (spec.md §6.4).
type Config struct {
	FetchPolicy        policy.FetchPolicy               `yaml:"fetch_policy"`
	WritePolicy        policy.WritePolicy               `yaml:"write_policy"`
	SyncMode           SyncMode                         `yaml:"sync_mode"`
	ConflictResolution pendingchange.ConflictResolution `yaml:"conflict_resolution"`
	RetryConfig        pendingchange.RetryPolicy        `yaml:"retry_config"`
	StaleDuration      time.Duration                    `yaml:"stale_duration"`
	SyncInterval       time.Duration                    `yaml:"sync_interval"`
	EnableAuditLogging bool                              `yaml:"enable_audit_logging"`
	EnableGDPR         bool                              `yaml:"enable_gdpr"`
	CacheConfig        CacheConfig                       `yaml:"cache_config"`
	CircuitBreaker     CircuitBreakerConfig              `yaml:"circuit_breaker_config"`
	InterceptorOrder   []string                          `yaml:"interceptors"`
}

// BreakerConfig adapts CircuitBreaker to reliability.BreakerConfig.
func (c Config) BreakerConfig() reliability.BreakerConfig { return c.CircuitBreaker.toBreakerConfig() }

// Defaults is the baseline preset (spec.md §6.4 "Presets").
func Defaults() Config {
	return Config{
		FetchPolicy:        policy.FetchCacheFirst,
		WritePolicy:        policy.WriteCacheAndNetwork,
		SyncMode:           SyncEventDriven,
		ConflictResolution: pendingchange.ResolveLatestWins,
		RetryConfig:        pendingchange.DefaultRetryPolicy(),
		StaleDuration:      5 * time.Minute,
		SyncInterval:       0,
		CacheConfig:        CacheConfig{MaxEntries: 10000, Eviction: EvictionLRU},
		CircuitBreaker:     CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second, HalfOpenProbes: 3},
		InterceptorOrder:   []string{"dedup", "retry", "telemetry"},
	}
}

// OfflineFirst prefers local durability over freshness, accepting
// divergence until a later sync (spec.md §6.4).
func OfflineFirst() Config {
	c := Defaults()
	c.FetchPolicy = policy.FetchCacheFirst
	c.WritePolicy = policy.WriteCacheFirst
	c.SyncMode = SyncPeriodic
	c.SyncInterval = time.Minute
	c.ConflictResolution = pendingchange.ResolveClientWins
	return c
}

// OnlineOnly requires a reachable backend for every operation.
func OnlineOnly() Config {
	c := Defaults()
	c.FetchPolicy = policy.FetchNetworkOnly
	c.WritePolicy = policy.WriteNetworkFirst
	c.SyncMode = SyncManual
	c.StaleDuration = 0
	c.ConflictResolution = pendingchange.ResolveServerWins
	return c
}

// Realtime favors live push updates with cache as a fast path.
func Realtime() Config {
	c := Defaults()
	c.FetchPolicy = policy.FetchCacheAndNetwork
	c.WritePolicy = policy.WriteNetworkFirst
	c.SyncMode = SyncRealtime
	c.ConflictResolution = pendingchange.ResolveLatestWins
	return c
}

// Load reads YAML from path and overlays it onto Defaults(); a missing
// file is not an error, mirroring the teacher's loadFromFile behavior of
// tolerating an absent config file.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read store config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse store config: %w", err)
	}
	return cfg, nil
}

// InterceptorKindsFor resolves the configured interceptor order into the
// operation kinds the retry interceptor should treat as idempotent.
func InterceptorKindsFor(order []string) []interceptor.OperationKind {
	// Reads are always idempotent; writes opt in only via "retry-writes".
	kinds := []interceptor.OperationKind{interceptor.OpGet, interceptor.OpGetAll}
	for _, name := range order {
		if name == "retry-writes" {
			kinds = append(kinds, interceptor.OpSave, interceptor.OpSaveAll, interceptor.OpDelete, interceptor.OpDeleteAll)
		}
	}
	return kinds
}
