// Package handlers contains HTTP handler interfaces and implementations.
//
// The central piece is the HealthChecker interface, which lets the
// composition root register named checks that run in parallel on every
// health probe:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("ledger", handlers.NewLedgerCheck(ledgerClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("health check failed: %s", status.Message)
//	}
//
// Checks are bounded by a per-check timeout, and a single failing check
// marks the whole service unhealthy and not ready. NewNoopHealthChecker
// provides an always-healthy implementation for tests and development.
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
//   - Return detailed information for debugging
package handlers
