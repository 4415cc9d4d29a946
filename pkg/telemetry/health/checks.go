package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/transform/ruleset"
)

// ConfigLoaded fails while store holds no configuration.
func ConfigLoaded(store *config.Store) CheckFunc {
	return func(context.Context) error {
		if store == nil || store.Get() == nil {
			return errors.New("configuration not loaded")
		}
		return nil
	}
}

// RulesLoaded fails while no rule set is installed.
func RulesLoaded(live *ruleset.Live) CheckFunc {
	return func(context.Context) error {
		if live == nil || live.Load() == nil {
			return errors.New("rule set not loaded")
		}
		return nil
	}
}

// UpstreamReachable opens and closes a TCP connection to the upstream host.
func UpstreamReachable(upstream *url.URL) CheckFunc {
	return func(ctx context.Context) error {
		addr := upstream.Host
		if upstream.Port() == "" {
			port := "80"
			if upstream.Scheme == "https" {
				port = "443"
			}
			addr = net.JoinHostPort(upstream.Hostname(), port)
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("upstream %s unreachable: %w", addr, err)
		}
		return conn.Close()
	}
}
