package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/ratelimit"
	"mineralscraper/pkg/retry"
)

type obj = map[string]interface{}

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     retry.DefaultRetryIf,
		Context:     context.Background(),
	}
}

// newTestClient returns an anonymous client pointed at a test server
func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Reddit.PublicURL = srv.URL

	opts = append([]Option{WithLimiter(ratelimit.Unlimited{}), WithRetry(fastRetry())}, opts...)
	c, err := NewClient(context.Background(), cfg, logger.NewNopLogger(), opts...)
	require.NoError(t, err)
	require.Equal(t, AuthModeAnonymous, c.Mode())
	return c
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func listingOf(after string, children ...obj) obj {
	var a interface{}
	if after != "" {
		a = after
	}
	if children == nil {
		children = []obj{}
	}
	return obj{"kind": "Listing", "data": obj{"after": a, "children": children}}
}

func postThing(id, title, subreddit string) obj {
	return obj{"kind": "t3", "data": obj{
		"id":           id,
		"title":        title,
		"selftext":     "found some " + title,
		"author":       "rockhound",
		"score":        42,
		"num_comments": 3,
		"subreddit":    subreddit,
		"created_utc":  1700000000.0,
		"permalink":    "/r/" + subreddit + "/comments/" + id + "/slug/",
	}}
}

func commentThing(id, parent string, depth int, replies ...obj) obj {
	var r interface{} = ""
	if len(replies) > 0 {
		r = listingOf("", replies...)
	}
	return obj{"kind": "t1", "data": obj{
		"id":          id,
		"parent_id":   parent,
		"link_id":     "t3_post1",
		"author":      "user_" + id,
		"body":        "comment " + id,
		"score":       1,
		"created_utc": 1700000100.0,
		"permalink":   "/r/geology/comments/post1/slug/" + id + "/",
		"subreddit":   "geology",
		"depth":       depth,
		"replies":     r,
	}}
}

func moreThing(id, parent string, depth int, children ...string) obj {
	if children == nil {
		children = []string{}
	}
	return obj{"kind": "more", "data": obj{
		"id":        id,
		"name":      "t1_" + id,
		"parent_id": parent,
		"count":     len(children),
		"depth":     depth,
		"children":  children,
	}}
}

func threadResponse(post obj, comments ...obj) []obj {
	return []obj{listingOf("", post), listingOf("", comments...)}
}
