package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports percentage rollout, account targeting, and A/B experiments.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	accountOverrides map[string]map[string]bool // accountID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Accounts are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	AccountID string
	IsAdmin   bool
}

// Predefined feature flag names.
const (
	// === Gamification Features ===
	FeatureStreaks            = "gamification.streaks"             // Daily streak tracking
	FeatureAchievements       = "gamification.achievements"        // Threshold achievements
	FeatureSecretAchievements = "gamification.secret_achievements" // Show unearned secret definitions

	// === Unlock Features ===
	FeatureUnlockGraph  = "unlocks.graph"         // Dependency-graph evaluation
	FeatureManualGrants = "unlocks.manual_grants" // Operator grant endpoint

	// === Content Generation ===
	FeatureContentGen      = "contentgen.enabled" // Personalized content via API
	FeatureContentGenCache = "contentgen.cache"   // Cache generated content

	// === Cache Features ===
	FeatureDashboardCache = "cache.dashboard" // Cached dashboard views

	// === Background Jobs ===
	FeatureVisitorSweep     = "jobs.visitor_sweep"     // Stale visitor record cleanup
	FeatureDashboardRefresh = "jobs.dashboard_refresh" // Periodic dashboard cache flush
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		accountOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Gamification - core to the engine, enabled by default
	ff.features[FeatureStreaks] = &Feature{
		Name:           FeatureStreaks,
		Description:    "Track daily learning streaks",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAchievements] = &Feature{
		Name:           FeatureAchievements,
		Description:    "Grant threshold achievements",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSecretAchievements] = &Feature{
		Name:           FeatureSecretAchievements,
		Description:    "Expose unearned secret achievement definitions",
		Enabled:        false, // Secret achievements stay hidden until earned
		RolloutPercent: 0,
	}

	// Unlocks
	ff.features[FeatureUnlockGraph] = &Feature{
		Name:           FeatureUnlockGraph,
		Description:    "Evaluate unit unlock conditions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureManualGrants] = &Feature{
		Name:           FeatureManualGrants,
		Description:    "Allow operator unlock grants",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Content generation - gradual rollout while the upstream API is tuned
	ff.features[FeatureContentGen] = &Feature{
		Name:           FeatureContentGen,
		Description:    "Generate personalized course content",
		Enabled:        true,
		RolloutPercent: 50,
	}

	ff.features[FeatureContentGenCache] = &Feature{
		Name:           FeatureContentGenCache,
		Description:    "Cache generated content",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Caches
	ff.features[FeatureDashboardCache] = &Feature{
		Name:           FeatureDashboardCache,
		Description:    "Serve dashboards from cache",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Background jobs
	ff.features[FeatureVisitorSweep] = &Feature{
		Name:           FeatureVisitorSweep,
		Description:    "Sweep stale unlinked visitor records",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDashboardRefresh] = &Feature{
		Name:           FeatureDashboardRefresh,
		Description:    "Periodically flush the dashboard cache",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_CONTENTGEN_ENABLED=true
// Example: FEATURE_GAMIFICATION_ACHIEVEMENTS=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "contentgen.enabled" -> "FEATURE_CONTENTGEN_ENABLED"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check account overrides first
	if ctx != nil && ctx.AccountID != "" {
		if overrides, ok := ff.accountOverrides[ctx.AccountID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.AccountID != "" {
		return isInRollout(ctx.AccountID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if an account is in the rollout percentage.
// Uses consistent hashing so accounts stay in their bucket.
func isInRollout(accountID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(accountID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for an account.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	if !ff.IsEnabled(featureName, ctx) {
		return ""
	}

	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ""
	}

	if len(feature.Variants) == 0 || ctx == nil {
		return ""
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.AccountID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// SetAccountOverride sets a feature override for a specific account.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetAccountOverride(accountID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.accountOverrides[accountID]; !ok {
		ff.accountOverrides[accountID] = make(map[string]bool)
	}
	ff.accountOverrides[accountID][featureName] = enabled
}

// ClearAccountOverrides removes all overrides for an account.
func (ff *FeatureFlags) ClearAccountOverrides(accountID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.accountOverrides, accountID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
