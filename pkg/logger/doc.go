// Package logger provides the structured logging interface used across the
// collector.
//
// It wraps zerolog: coloured console output on stderr by default, JSON lines
// when logging.format is "json", and an optional append-only JSON log file.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("mineral", "quartz").Info("Starting mineral")
//	log.WithError(err).ErrorWithFields("Failed to search subreddit", map[string]interface{}{
//	    "subreddit": "geology",
//	})
//
// NewTestLogger captures messages for assertions and NewNopLogger discards them.
package logger
