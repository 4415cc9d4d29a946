package ruleset

import (
	"log/slog"
	"sync/atomic"

	"mercator-hq/enricher/pkg/config"
)

// Live holds the rule set new exchanges start with. Exchanges capture the
// set once, so a swap never affects an exchange already in flight.
type Live struct {
	current atomic.Pointer[Set]
}

// NewLive returns a holder serving initial.
func NewLive(initial *Set) *Live {
	l := &Live{}
	l.current.Store(initial)
	return l
}

// Load returns the current set.
func (l *Live) Load() *Set { return l.current.Load() }

// Swap installs s for exchanges that start from now on.
func (l *Live) Swap(s *Set) { l.current.Store(s) }

// Follow rebuilds the set whenever store changes. A configuration that
// fails to build is logged and the previous set stays active.
func (l *Live) Follow(store *config.Store, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	store.OnChange(func(cfg *config.Config) {
		s, err := Build(cfg.Rules)
		if err != nil {
			logger.Error("rule set rebuild failed, keeping previous rules", "error", err)
			return
		}
		l.Swap(s)
		logger.Info("rule set reloaded", "rules", s.Len())
	})
}
