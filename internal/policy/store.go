package policy

import "sync/atomic"

// Store publishes the active Config to concurrent readers. Reads are
// lock-free; reconfiguration validates the replacement first and then
// swaps the pointer, so no in-flight evaluation ever observes a
// partially updated threshold set.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore returns a Store with cfg as the active configuration. The
// initial configuration must already be validated.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Current returns the active configuration.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Swap validates cfg and, on success, publishes it atomically. On
// failure the previously active configuration stays in force and the
// validation error is returned.
func (s *Store) Swap(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.current.Store(cfg)
	return nil
}
