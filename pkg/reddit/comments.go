package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	errs "mineralscraper/pkg/errors"
	"mineralscraper/pkg/models"
)

// ErrIncompleteThread reports a comment tree cut short by the expansion cap
var ErrIncompleteThread = errors.New("reddit: comment thread only partially retrieved")

// commentTree flattens a thread into comments, remembering levels so that
// comments delivered out of tree order still get the right depth
type commentTree struct {
	post     models.Post
	comments []models.Comment
	seen     map[string]bool
	levels   map[string]int
	pending  []moreData
	expanded map[string]bool
}

func newCommentTree(post models.Post) *commentTree {
	return &commentTree{
		post:     post,
		seen:     make(map[string]bool),
		levels:   make(map[string]int),
		expanded: make(map[string]bool),
	}
}

// levelOf derives a comment's depth from its parent. fallback is used when
// the parent is unknown, a negative fallback defers to Reddit's depth field.
func (t *commentTree) levelOf(cd commentData, fallback int) int {
	if strings.HasPrefix(cd.ParentID, "t3_") {
		return 0
	}
	if lvl, ok := t.levels[strings.TrimPrefix(cd.ParentID, "t1_")]; ok {
		return lvl + 1
	}
	if fallback >= 0 {
		return fallback
	}
	return cd.Depth
}

// walk visits children depth-first. Known comments are not emitted again but
// their replies are still visited.
func (t *commentTree) walk(children []thing, level int) error {
	for _, child := range children {
		switch child.Kind {
		case kindComment:
			var cd commentData
			if err := json.Unmarshal(child.Data, &cd); err != nil {
				return errs.Wrap(errs.ErrorTypeParsing, err, "malformed comment")
			}
			if cd.ID == "" {
				continue
			}
			lvl := t.levelOf(cd, level)
			if _, ok := t.levels[cd.ID]; !ok {
				t.levels[cd.ID] = lvl
			}
			if !t.seen[cd.ID] {
				t.seen[cd.ID] = true
				t.comments = append(t.comments, cd.toComment(t.post, lvl))
			}

			replies, err := cd.replies()
			if err != nil {
				return errs.Wrap(errs.ErrorTypeParsing, err, "malformed replies")
			}
			if replies != nil {
				childLevel := -1
				if level >= 0 {
					childLevel = lvl + 1
				}
				if err := t.walk(replies.Data.Children, childLevel); err != nil {
					return err
				}
			}
		case kindMore:
			var md moreData
			if err := json.Unmarshal(child.Data, &md); err != nil {
				return errs.Wrap(errs.ErrorTypeParsing, err, "malformed more stub")
			}
			key := md.Name + "|" + md.ParentID + "|" + strings.Join(md.Children, ",")
			if t.expanded[key] {
				continue
			}
			t.expanded[key] = true
			t.pending = append(t.pending, md)
		}
	}
	return nil
}

func (t *commentTree) next() (moreData, bool) {
	if len(t.pending) == 0 {
		return moreData{}, false
	}
	md := t.pending[0]
	t.pending = t.pending[1:]
	return md, true
}

// FetchComments returns every comment of post, flattened depth-first with
// levels. "load more comments" and "continue this thread" stubs are expanded
// until the whole tree is retrieved. Each comment appears once. When the
// expansion cap is reached no comments are returned, only ErrIncompleteThread.
func (c *Client) FetchComments(ctx context.Context, post models.Post) ([]models.Comment, error) {
	tree := newCommentTree(post)

	if err := c.fetchThread(ctx, tree, ""); err != nil {
		return nil, fmt.Errorf("fetch comments for post %s: %w", post.ID, err)
	}

	expansions := 0
	for {
		md, ok := tree.next()
		if !ok {
			break
		}
		if md.continuesThread() && !strings.HasPrefix(md.ParentID, "t1_") {
			continue
		}
		if c.maxExpansions > 0 && expansions >= c.maxExpansions {
			remaining := len(tree.pending) + 1
			c.logger.WarnWithFields("comment expansion limit reached", map[string]interface{}{
				"post_id":   post.ID,
				"remaining": remaining,
				"comments":  len(tree.comments),
			})
			return nil, fmt.Errorf("post %s: %d stubs left after %d expansions: %w",
				post.ID, remaining, expansions, ErrIncompleteThread)
		}
		expansions++

		var err error
		if md.continuesThread() {
			err = c.fetchThread(ctx, tree, strings.TrimPrefix(md.ParentID, "t1_"))
		} else {
			err = c.expandMore(ctx, tree, md)
		}
		if err != nil {
			return nil, fmt.Errorf("expand comments for post %s: %w", post.ID, err)
		}
	}

	c.logger.DebugWithFields("comments fetched", map[string]interface{}{
		"post_id":    post.ID,
		"comments":   len(tree.comments),
		"expansions": expansions,
	})
	return tree.comments, nil
}

// fetchThread loads the thread, rooted at focus when it is non-empty
func (c *Client) fetchThread(ctx context.Context, tree *commentTree, focus string) error {
	var pages []listing
	if err := c.getJSON(ctx, CommentsPath(tree.post.ID), CommentsParams(focus), &pages); err != nil {
		return err
	}
	if len(pages) < 2 {
		return errs.New(errs.ErrorTypeParsing, 0, "comment response is missing the comment listing")
	}

	level := 0
	if focus != "" {
		// The focused subtree starts below an already known comment
		level = -1
	}
	return tree.walk(pages[1].Data.Children, level)
}

// expandMore resolves a "load more comments" stub through morechildren
func (c *Client) expandMore(ctx context.Context, tree *commentTree, md moreData) error {
	var ids []string
	for _, id := range md.Children {
		if !tree.seen[id] {
			ids = append(ids, id)
		}
	}

	for _, chunk := range batch(ids, MoreChildrenBatch) {
		var resp moreChildrenResponse
		if err := c.getJSON(ctx, MoreChildrenEndpoint, MoreChildrenParams(tree.post.Fullname(), chunk), &resp); err != nil {
			return err
		}
		if len(resp.JSON.Errors) > 0 {
			return errs.New(errs.ErrorTypeUnknown, 0, fmt.Sprintf("morechildren failed: %v", resp.JSON.Errors))
		}
		// Things arrive flat, so levels come from the parent map
		if err := tree.walk(resp.JSON.Data.Things, -1); err != nil {
			return err
		}
	}
	return nil
}
