package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags toggles optional integrations at startup and at runtime.
// Rule behavior never depends on a flag.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Predefined feature flag names.
const (
	// === Redis integrations (only when REDIS_ENABLED) ===
	FeatureRedisContentCache = "redis.content_cache" // shared eligibility cache
	FeatureRedisEventFanout  = "redis.event_fanout"  // relay events to other instances
	FeatureRedisProfileLock  = "redis.profile_lock"  // cross-instance profile mutation lock

	// === Exchange ===
	FeatureExportChecksum = "exchange.verify_checksum" // reject tampered imports

	// === Scheduler jobs ===
	FeatureJobExpireStreaks = "jobs.expire_streaks"
	FeatureJobReloadContent = "jobs.reload_content"

	// === Tracker ===
	FeatureAchievements = "tracker.achievements" // milestone unlocks
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	for _, f := range []Feature{
		{FeatureRedisContentCache, "Cache eligible content lists in Redis", true},
		{FeatureRedisEventFanout, "Relay domain events through Redis pub/sub", true},
		{FeatureRedisProfileLock, "Serialize profile mutations with a Redis lock", true},
		{FeatureExportChecksum, "Verify profile export checksums on import", true},
		{FeatureJobExpireStreaks, "Nightly streak expiry", true},
		{FeatureJobReloadContent, "Periodic curriculum reload", true},
		{FeatureAchievements, "Unlock streak, mastery and belt achievements", true},
	} {
		f := f
		ff.features[f.Name] = &f
	}
}

// loadFromEnvironment applies overrides of the form FEATURE_<NAME>=true|false.
// Example: FEATURE_REDIS_EVENT_FANOUT=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		if val := os.Getenv(featureNameToEnvKey(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "redis.event_fanout" -> "FEATURE_REDIS_EVENT_FANOUT"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a known feature is on. Unknown names are off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	return ok && feature.Enabled
}

// SetEnabled switches a feature.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// EnableFeature turns a feature on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetEnabled(featureName, true)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetEnabled(featureName, false)
}

// GetAllFeatures returns a copy of every flag, sorted by name.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make([]Feature, 0, len(ff.features))
	for _, v := range ff.features {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// --- Errors ---

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
