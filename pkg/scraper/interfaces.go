package scraper

import (
	"context"

	"mineralscraper/pkg/models"
	"mineralscraper/pkg/reddit"
)

// RedditClient defines the Reddit operations the scraper needs
type RedditClient interface {
	Search(ctx context.Context, subreddit, query string, opts reddit.SearchOptions, fn func(models.Post) error) error
	FetchComments(ctx context.Context, post models.Post) ([]models.Comment, error)
}
