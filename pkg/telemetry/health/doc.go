// Package health provides the probe endpoints of the enricher.
//
//   - /health: liveness, 200 while the process runs
//   - /ready: readiness, 200 when every registered check passes, else 503
//   - /version: build information
//
// The enricher registers three readiness checks: the configuration is
// loaded, a rule set is installed, and the upstream accepts TCP connections.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("config", health.ConfigLoaded(store))
//	checker.RegisterCheck("rules", health.RulesLoaded(live))
//	checker.RegisterCheck("upstream", health.UpstreamReachable(upstream))
//	health.Register(mux, cfg.Telemetry.Health.PathPrefix, checker, info)
package health
