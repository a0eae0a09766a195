package reddit

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// PermalinkHost prefixes the relative permalinks Reddit returns
	PermalinkHost = "https://reddit.com"

	// MoreChildrenEndpoint expands "load more comments" stubs
	MoreChildrenEndpoint = "/api/morechildren"

	// MeEndpoint returns the authenticated account
	MeEndpoint = "/api/v1/me"

	// DefaultPageSize is the number of search results requested per page
	DefaultPageSize = 100

	// MaxPageSize is the largest listing page Reddit serves
	MaxPageSize = 100

	// MoreChildrenBatch is the number of comment IDs per morechildren call
	MoreChildrenBatch = 100

	// CommentLimit is the number of comments requested with a thread
	CommentLimit = 500
)

// SearchPath returns the subreddit search endpoint path
func SearchPath(subreddit string) string {
	return "/r/" + url.PathEscape(subreddit) + "/search"
}

// CommentsPath returns the comment thread endpoint path for a post
func CommentsPath(postID string) string {
	return "/comments/" + url.PathEscape(postID)
}

// SearchParams builds the query for one search page restricted to the subreddit
func SearchParams(query, after string, opts SearchOptions) url.Values {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", opts.Sort)
	params.Set("t", opts.TimeFilter)
	params.Set("type", "link")
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("raw_json", "1")
	if after != "" {
		params.Set("after", after)
	}
	return params
}

// CommentsParams builds the query for a comment thread. A non-empty
// focusComment roots the returned tree at that comment.
func CommentsParams(focusComment string) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(CommentLimit))
	params.Set("sort", "confidence")
	params.Set("raw_json", "1")
	if focusComment != "" {
		params.Set("comment", focusComment)
	}
	return params
}

// MoreChildrenParams builds the query expanding the given comment IDs
func MoreChildrenParams(linkFullname string, children []string) url.Values {
	params := url.Values{}
	params.Set("api_type", "json")
	params.Set("link_id", linkFullname)
	params.Set("children", strings.Join(children, ","))
	params.Set("limit_children", "false")
	params.Set("raw_json", "1")
	return params
}

// FullPermalink turns a relative Reddit permalink into an absolute URL
func FullPermalink(permalink string) string {
	if permalink == "" || strings.HasPrefix(permalink, "http") {
		return permalink
	}
	if !strings.HasPrefix(permalink, "/") {
		permalink = "/" + permalink
	}
	return PermalinkHost + permalink
}

// batch splits ids into chunks of at most size
func batch(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
