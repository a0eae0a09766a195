package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"mineralscraper/pkg/models"
)

// Dataset holds the posts and comments collected for one mineral. Records
// keep their first-seen order and are never replaced once added.
type Dataset struct {
	mineral string
	dir     string

	mu           sync.RWMutex
	posts        []models.Post
	postIndex    map[string]int
	comments     []models.Comment
	commentIndex map[string]int
	dirty        bool
}

func loadDataset(mineral, dir string) (*Dataset, error) {
	ds := &Dataset{
		mineral:      mineral,
		dir:          dir,
		postIndex:    make(map[string]int),
		commentIndex: make(map[string]int),
	}

	var posts []models.Post
	if _, err := readJSON(filepath.Join(dir, PostsFile), &posts); err != nil {
		return nil, err
	}
	for _, p := range posts {
		ds.addPost(p)
	}

	var comments []models.Comment
	if _, err := readJSON(filepath.Join(dir, CommentsFile), &comments); err != nil {
		return nil, err
	}
	for _, c := range comments {
		ds.addComment(c)
	}

	ds.dirty = false
	return ds, nil
}

// Mineral returns the mineral this dataset belongs to
func (d *Dataset) Mineral() string {
	return d.mineral
}

// HasPost reports whether a post with id is already stored
func (d *Dataset) HasPost(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.postIndex[id]
	return ok
}

// AddPost stores p unless a post with the same ID exists. It reports
// whether the post was added.
func (d *Dataset) AddPost(p models.Post) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addPost(p)
}

func (d *Dataset) addPost(p models.Post) bool {
	if p.ID == "" {
		return false
	}
	if _, ok := d.postIndex[p.ID]; ok {
		return false
	}
	d.postIndex[p.ID] = len(d.posts)
	d.posts = append(d.posts, p)
	d.dirty = true
	return true
}

// HasComment reports whether a comment with id is already stored
func (d *Dataset) HasComment(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.commentIndex[id]
	return ok
}

// AddComments stores the comments not seen before, in the given order, and
// returns how many were added
func (d *Dataset) AddComments(comments []models.Comment) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	added := 0
	for _, c := range comments {
		if d.addComment(c) {
			added++
		}
	}
	return added
}

func (d *Dataset) addComment(c models.Comment) bool {
	if c.ID == "" {
		return false
	}
	if _, ok := d.commentIndex[c.ID]; ok {
		return false
	}
	d.commentIndex[c.ID] = len(d.comments)
	d.comments = append(d.comments, c)
	d.dirty = true
	return true
}

// PostCount returns the number of stored posts
func (d *Dataset) PostCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.posts)
}

// CommentCount returns the number of stored comments
func (d *Dataset) CommentCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.comments)
}

// Posts returns a copy of the stored posts
func (d *Dataset) Posts() []models.Post {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Post(nil), d.posts...)
}

// Comments returns a copy of the stored comments
func (d *Dataset) Comments() []models.Comment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Comment(nil), d.comments...)
}

// Save writes posts.json and comments.json. Nothing is written when no
// record was added since the last save and both files exist.
func (d *Dataset) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	postsPath := filepath.Join(d.dir, PostsFile)
	commentsPath := filepath.Join(d.dir, CommentsFile)
	if !d.dirty && fileExists(postsPath) && fileExists(commentsPath) {
		return nil
	}

	posts := d.posts
	if posts == nil {
		posts = []models.Post{}
	}
	comments := d.comments
	if comments == nil {
		comments = []models.Comment{}
	}

	if err := WriteJSON(postsPath, posts); err != nil {
		return fmt.Errorf("save posts for %s: %w", d.mineral, err)
	}
	if err := WriteJSON(commentsPath, comments); err != nil {
		return fmt.Errorf("save comments for %s: %w", d.mineral, err)
	}
	d.dirty = false
	return nil
}

// BuildSummary describes the dataset after a run
func (d *Dataset) BuildSummary(runID string, subreddits []string, newPosts, newComments int) models.Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	summary := models.Summary{
		Mineral:             d.mineral,
		ExtractionDate:      time.Now(),
		RunID:               runID,
		TotalPosts:          len(d.posts),
		TotalComments:       len(d.comments),
		NewPostsThisRun:     newPosts,
		NewCommentsThisRun:  newComments,
		SubredditsSearched:  append([]string{}, subreddits...),
		SearchQuery:         d.mineral,
		PostsBySubreddit:    make(map[string]int),
		CommentsBySubreddit: make(map[string]int),
	}
	for _, p := range d.posts {
		summary.PostsBySubreddit[p.Subreddit]++
	}
	for _, c := range d.comments {
		summary.CommentsBySubreddit[c.Subreddit]++
	}
	return summary
}

// WriteSummary writes summary.json
func (d *Dataset) WriteSummary(summary models.Summary) error {
	if err := WriteJSON(filepath.Join(d.dir, SummaryFile), summary); err != nil {
		return fmt.Errorf("save summary for %s: %w", d.mineral, err)
	}
	return nil
}
