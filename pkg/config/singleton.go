package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Store holds the live configuration. Readers take a snapshot with Get and
// keep using it even if a reload swaps in a newer one.
type Store struct {
	path      string
	overrides []Override
	current   atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(*Config)
}

// NewStore returns a store holding cfg. path is the file Reload reads; it may
// be empty when the store is never reloaded. overrides are applied again on
// every Reload.
func NewStore(path string, cfg *Config, overrides ...Override) *Store {
	s := &Store{path: path, overrides: overrides}
	s.current.Store(cfg)
	return s
}

// Path returns the configuration file backing the store.
func (s *Store) Path() string { return s.path }

// Get returns the current configuration snapshot.
func (s *Store) Get() *Config { return s.current.Load() }

// Set replaces the configuration and notifies listeners.
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(cfg)
	for _, fn := range s.listeners {
		fn(cfg)
	}
}

// OnChange registers fn to run after every Set or successful Reload. Calls
// are serialized.
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the backing file. On any error the current configuration
// stays in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("failed to reload configuration: store has no file")
	}
	cfg, err := LoadConfigWithEnvOverrides(s.path, s.overrides...)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	s.Set(cfg)
	return nil
}

var (
	// globalStore holds the process-wide configuration.
	globalStore atomic.Pointer[Store]

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from path with environment variable
// overrides and the given overrides, and installs it as the process-wide store.
// Subsequent calls are ignored.
func Initialize(path string, overrides ...Override) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path, overrides...)
		if err != nil {
			initErr = err
			return
		}
		globalStore.Store(NewStore(path, cfg, overrides...))
	})

	return initErr
}

// GlobalStore returns the process-wide store, or nil before Initialize.
func GlobalStore() *Store {
	return globalStore.Load()
}

// GetConfig returns the process-wide configuration, or nil if Initialize has
// not been called successfully.
func GetConfig() *Config {
	if s := globalStore.Load(); s != nil {
		return s.Get()
	}
	return nil
}

// SetConfig replaces the process-wide configuration. Intended for tests.
func SetConfig(cfg *Config) {
	if s := globalStore.Load(); s != nil {
		s.Set(cfg)
		return
	}
	globalStore.Store(NewStore("", cfg))
}

// MustGetConfig returns the process-wide configuration and panics if it has
// not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
