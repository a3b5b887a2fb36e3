package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the process-wide configuration instance.
	globalConfig *Config

	// globalMu protects access to globalConfig.
	globalMu sync.RWMutex

	// loadOnce ensures Initialize loads at most once.
	loadOnce sync.Once
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the process-wide instance. It is
// meant to be called once at startup; later calls are no-ops.
//
// Returns an error if loading or validation fails.
func Initialize(path string) error {
	var initErr error

	loadOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		globalMu.Lock()
		globalConfig = cfg
		globalMu.Unlock()
	})

	return initErr
}

// GetConfig returns the process-wide configuration instance, or nil if
// Initialize has not completed successfully. Safe for concurrent use.
//
// Tests should prefer passing explicit Config values over reading the
// global instance.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration instance. Intended
// for tests; production code goes through Initialize.
func SetConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ReloadConfig loads the configuration at path and swaps it in as the
// process-wide instance. The existing instance stays in place when
// loading or validation fails.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	globalMu.Lock()
	globalConfig = cfg
	globalMu.Unlock()

	return nil
}

// MustGetConfig returns the process-wide configuration instance and
// panics if it has not been initialized. Use only on paths that run
// after successful startup; elsewhere prefer GetConfig.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
