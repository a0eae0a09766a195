package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mineralscraper/pkg/config"
	"mineralscraper/pkg/models"
)

// ErrStop can be returned by a Search callback to end the search early
// without an error
var ErrStop = errors.New("reddit: stop search")

// SearchOptions controls a subreddit search
type SearchOptions struct {
	Sort       string
	TimeFilter string
	// Limit caps the number of posts delivered, 0 means all results
	Limit int
	// PageSize is the listing size per request, at most 100
	PageSize int
}

// DefaultSearchOptions searches all time by relevance, 100 posts per page
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Sort:       "relevance",
		TimeFilter: "all",
		PageSize:   DefaultPageSize,
	}
}

// SearchOptionsFromConfig derives search options from the scrape section
func SearchOptionsFromConfig(sc config.ScrapeConfig) SearchOptions {
	opts := DefaultSearchOptions()
	if sc.Sort != "" {
		opts.Sort = sc.Sort
	}
	if sc.TimeFilter != "" {
		opts.TimeFilter = sc.TimeFilter
	}
	opts.Limit = sc.SearchLimit
	return opts
}

// Search pages through every post in subreddit matching query and calls fn
// for each one, in the order Reddit returns them. Posts repeated across
// pages are delivered once.
func (c *Client) Search(ctx context.Context, subreddit, query string, opts SearchOptions, fn func(models.Post) error) error {
	if opts.Sort == "" || opts.TimeFilter == "" {
		defaults := DefaultSearchOptions()
		if opts.Sort == "" {
			opts.Sort = defaults.Sort
		}
		if opts.TimeFilter == "" {
			opts.TimeFilter = defaults.TimeFilter
		}
	}

	log := c.logger.WithFields(map[string]interface{}{
		"subreddit": subreddit,
		"query":     query,
	})

	seen := make(map[string]bool)
	delivered := 0
	after := ""
	page := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var result listing
		if err := c.getJSON(ctx, SearchPath(subreddit), SearchParams(query, after, opts), &result); err != nil {
			return fmt.Errorf("search r/%s for %q: %w", subreddit, query, err)
		}
		page++

		log.DebugWithFields("search page fetched", map[string]interface{}{
			"page":    page,
			"results": len(result.Data.Children),
			"after":   result.Data.After,
		})

		for _, child := range result.Data.Children {
			if child.Kind != kindLink {
				continue
			}
			var pd postData
			if err := json.Unmarshal(child.Data, &pd); err != nil {
				log.WithError(err).Warn("Skipping malformed search result")
				continue
			}
			if pd.ID == "" || seen[pd.ID] {
				continue
			}
			seen[pd.ID] = true

			if err := fn(pd.toPost()); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}

			delivered++
			if opts.Limit > 0 && delivered >= opts.Limit {
				return nil
			}
		}

		next := result.Data.After
		if next == "" || next == after || len(result.Data.Children) == 0 {
			log.DebugWithFields("search complete", map[string]interface{}{
				"pages": page,
				"posts": delivered,
			})
			return nil
		}
		after = next
	}
}
