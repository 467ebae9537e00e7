package policy

import (
	"context"
	"log/slog"

	"github.com/modwatch/modwatch/platform"
)

// A post submission delivered by the event source, or re-surfaced by the
// periodic feed scan.
type PostEvent struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	SelfText   string `json:"selfText"`
	Permalink  string `json:"permalink"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
}

type CommentEvent struct {
	ID         string `json:"id"`
	Body       string `json:"body"`
	Permalink  string `json:"permalink"`
	PostID     string `json:"postId"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
}

// Actor facts fetched fresh for each evaluation. Moderator/approved
// membership is derived from rosters at check time, not stored here.
type ActorMeta struct {
	ID       string
	Username string
}

// The primary state passed to rules and the executor for a post event.
// All other contexts derive from this "base" struct.
type baseContext struct {
	Ctx     context.Context
	Logger  *slog.Logger
	Install string
	Actor   ActorMeta
	// Normalized blacklist for this evaluation; empty short-circuits all
	// domain rules.
	Domains  []string
	Settings *Settings

	engine *Engine
}

type PostContext struct {
	baseContext

	Post PostEvent
	// Feed-scan events only evaluate the social-link rule; the other
	// signals were already checked at submission time.
	scanOnly bool

	// lazily fetched, memoized per evaluation
	socialLinks  []platform.SocialLink
	socialLoaded bool
	recentPosts  []platform.Post
	recentLoaded bool
}

type CommentContext struct {
	baseContext

	Comment CommentEvent
}

// SocialLinks fetches (once) the actor's social-link entries.
func (c *PostContext) SocialLinks() ([]platform.SocialLink, error) {
	if c.socialLoaded {
		return c.socialLinks, nil
	}
	links, err := c.engine.Directory.GetSocialLinks(c.Ctx, c.Actor.Username)
	if err != nil {
		return nil, err
	}
	c.socialLinks = links
	c.socialLoaded = true
	return links, nil
}

// RecentPosts fetches (once) the actor's most recent posts, newest first.
func (c *PostContext) RecentPosts(limit int) ([]platform.Post, error) {
	if c.recentLoaded {
		return c.recentPosts, nil
	}
	posts, err := c.engine.Directory.GetRecentPosts(c.Ctx, c.Actor.Username, limit)
	if err != nil {
		return nil, err
	}
	c.recentPosts = posts
	c.recentLoaded = true
	return posts, nil
}

// UserExtra fetches the actor's extended profile. Unlike the other
// lookups this endpoint is flaky; callers are expected to fail open.
func (c *PostContext) UserExtra() (*platform.UserExtra, error) {
	return c.engine.Directory.GetUserExtra(c.Ctx, c.Actor.Username)
}
