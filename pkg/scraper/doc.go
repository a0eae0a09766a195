// Package scraper collects Reddit posts and comments for each mineral of a
// subreddit mapping.
//
// For every mineral the scraper searches each mapped subreddit for the
// mineral name, hands posts it has not processed yet to a pool of comment
// fetchers and stores the results under <data>/<mineral>/:
//
//	posts.json     every post found so far, deduplicated by ID
//	comments.json  every comment collected, flattened with its reply level
//	progress.json  IDs of posts whose comments are complete
//	summary.json   totals and per-subreddit counts of the latest run
//
// A post is marked processed only after its comments were fetched, so a
// failed or interrupted fetch is retried on the next run. The dataset is
// always written before the progress record.
//
// Usage:
//
//	s := scraper.New(cfg, client, store, progress, log)
//	s.SetReporter(display)
//	results, err := s.Run(ctx, mapping, scraper.RunOptions{})
package scraper
