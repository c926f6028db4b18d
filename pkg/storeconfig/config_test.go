package storeconfig

import (
	"testing"

	"github.com/unfazed-dev/nexus-store/internal/policy"
)

func TestDefaultsPreset(t *testing.T) {
	c := Defaults()
	if c.FetchPolicy != policy.FetchCacheFirst {
		t.Errorf("FetchPolicy = %s, want cacheFirst", c.FetchPolicy)
	}
	if c.CacheConfig.MaxEntries <= 0 {
		t.Error("Defaults() should set a positive MaxEntries")
	}
}

func TestOfflineFirstPrefersLocalWrites(t *testing.T) {
	c := OfflineFirst()
	if c.WritePolicy != policy.WriteCacheFirst {
		t.Errorf("WritePolicy = %s, want cacheFirst", c.WritePolicy)
	}
	if c.SyncMode != SyncPeriodic {
		t.Errorf("SyncMode = %s, want periodic", c.SyncMode)
	}
}

func TestOnlineOnlyNeverTreatsStale(t *testing.T) {
	c := OnlineOnly()
	if c.StaleDuration != 0 {
		t.Errorf("StaleDuration = %v, want 0 (nothing is ever stale)", c.StaleDuration)
	}
	if c.FetchPolicy != policy.FetchNetworkOnly {
		t.Errorf("FetchPolicy = %s, want networkOnly", c.FetchPolicy)
	}
}

func TestLoadToleratesMissingFile(t *testing.T) {
	c, err := Load("/nonexistent/path/store-config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.FetchPolicy != Defaults().FetchPolicy {
		t.Error("Load with missing file should fall back to Defaults()")
	}
}

func TestInterceptorKindsForDefaultsToReadsOnly(t *testing.T) {
	kinds := InterceptorKindsFor([]string{"dedup", "retry", "telemetry"})
	for _, k := range kinds {
		if k == "save" || k == "delete" {
			t.Errorf("kinds = %v, should not include writes without retry-writes", kinds)
		}
	}
}
