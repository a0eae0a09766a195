// Package ratelimit keeps the collector under Reddit's request quota.
//
// SlidingWindow counts requests in a rolling window and can be paused when
// the API reports an exhausted quota through its X-Ratelimit headers.
// Wait honours context cancellation so a SIGINT never hangs on the limiter.
package ratelimit
