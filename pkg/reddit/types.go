package reddit

import (
	"encoding/json"
	"strings"

	"mineralscraper/pkg/models"
)

// Reddit "thing" kinds
const (
	kindComment = "t1"
	kindLink    = "t3"
	kindMore    = "more"
)

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
}

type commentData struct {
	ID         string  `json:"id"`
	ParentID   string  `json:"parent_id"`
	LinkID     string  `json:"link_id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	Subreddit  string  `json:"subreddit"`
	Depth      int     `json:"depth"`
	// Replies is "" when empty and a listing object otherwise
	Replies json.RawMessage `json:"replies"`
}

type moreData struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Depth    int      `json:"depth"`
	Children []string `json:"children"`
}

// continuesThread reports a "continue this thread" stub, which carries no
// child IDs and has to be fetched as a thread rooted at its parent.
func (m moreData) continuesThread() bool {
	return len(m.Children) == 0
}

type moreChildrenResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

type meResponse struct {
	Name string `json:"name"`
}

func (d commentData) replies() (*listing, error) {
	raw := strings.TrimSpace(string(d.Replies))
	if raw == "" || raw[0] != '{' {
		return nil, nil
	}
	var l listing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func authorOrDeleted(author string) string {
	if author == "" {
		return models.DeletedAuthor
	}
	return author
}

func (d postData) toPost() models.Post {
	return models.Post{
		ID:          d.ID,
		Title:       d.Title,
		Selftext:    d.Selftext,
		Author:      authorOrDeleted(d.Author),
		Score:       d.Score,
		NumComments: d.NumComments,
		Subreddit:   d.Subreddit,
		CreatedUTC:  d.CreatedUTC,
		CreatedDate: models.FormatCreated(d.CreatedUTC),
		Permalink:   FullPermalink(d.Permalink),
	}
}

func (d commentData) toComment(post models.Post, level int) models.Comment {
	subreddit := post.Subreddit
	if subreddit == "" {
		subreddit = d.Subreddit
	}
	return models.Comment{
		ID:          d.ID,
		PostID:      post.ID,
		ParentID:    d.ParentID,
		Author:      authorOrDeleted(d.Author),
		Body:        d.Body,
		Score:       d.Score,
		Level:       level,
		Subreddit:   subreddit,
		CreatedUTC:  d.CreatedUTC,
		CreatedDate: models.FormatCreated(d.CreatedUTC),
		Permalink:   FullPermalink(d.Permalink),
	}
}
