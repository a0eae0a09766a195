// Package retry provides backoff and retry logic for transient Reddit API
// failures.
//
// Strategies: exponential (default), linear (network errors) and constant.
// When a typed error carries a Retry-After hint the wait is at least that long.
//
//	cfg := retry.FromConfig(appCfg.Retry, log).WithContext(ctx)
//	err := retry.Do(func() error {
//		return fetchPage(ctx)
//	}, cfg)
//
// Auth, forbidden, not-found and parsing errors are never retried, nor are
// context cancellation errors.
package retry
