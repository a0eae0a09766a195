package models

import (
	"math"
	"time"
)

// DeletedAuthor is recorded when Reddit no longer reports an author
const DeletedAuthor = "[deleted]"

// Post is a submission matched by a mineral search
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	CreatedDate string  `json:"created_date"`
	Permalink   string  `json:"permalink"`
}

// Fullname is the t3_ prefixed identifier Reddit uses for links
func (p Post) Fullname() string {
	return "t3_" + p.ID
}

// Comment is one node of a post's comment tree, flattened
type Comment struct {
	ID       string `json:"id"`
	PostID   string `json:"post_id"`
	ParentID string `json:"parent_id"`
	Author   string `json:"author"`
	Body     string `json:"body"`
	Score    int    `json:"score"`
	// Level is 0 for top-level comments and grows by one per reply depth
	Level       int     `json:"level"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	CreatedDate string  `json:"created_date"`
	Permalink   string  `json:"permalink"`
}

// IsTopLevel reports whether the comment replies to the post itself
func (c Comment) IsTopLevel() bool {
	return len(c.ParentID) > 3 && c.ParentID[:3] == "t3_"
}

// Summary describes a mineral's dataset after a run
type Summary struct {
	Mineral             string         `json:"mineral"`
	ExtractionDate      time.Time      `json:"extraction_date"`
	RunID               string         `json:"run_id"`
	TotalPosts          int            `json:"total_posts"`
	TotalComments       int            `json:"total_comments"`
	NewPostsThisRun     int            `json:"new_posts_this_run"`
	NewCommentsThisRun  int            `json:"new_comments_this_run"`
	SubredditsSearched  []string       `json:"subreddits_searched"`
	SearchQuery         string         `json:"search_query"`
	PostsBySubreddit    map[string]int `json:"posts_by_subreddit"`
	CommentsBySubreddit map[string]int `json:"comments_by_subreddit"`
}

// FormatCreated renders a Reddit created_utc value as a local ISO-8601 time
func FormatCreated(createdUTC float64) string {
	sec, frac := math.Modf(createdUTC)
	t := time.Unix(int64(sec), int64(frac*1e9)).Local()
	return t.Format("2006-01-02T15:04:05")
}
