// Package platform defines the abstract contracts for the content-hosting
// platform which delivers events to, and receives moderation actions from,
// the policy engine. Two implementations exist: an HTTP client for the
// real platform API, and in-memory mocks for tests.
package platform

import (
	"context"
	"errors"
)

// Returned by directory lookups when the subject does not exist (deleted
// account, ghost event payload, etc). Callers are expected to treat this as
// a short-circuit, not a failure.
var ErrNotFound = errors.New("platform: subject not found")

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// A single entry from the "social links" section of a user profile.
type SocialLink struct {
	Title       string `json:"title"`
	OutboundURL string `json:"outboundUrl"`
}

type Post struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Body       string `json:"body"`
	Permalink  string `json:"permalink"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Stickied   bool   `json:"stickied"`
	Removed    bool   `json:"removed"`
	Approved   bool   `json:"approved"`
}

// Extended profile facts which require a separate (and less reliable)
// lookup than the basic user record.
type UserExtra struct {
	NSFW bool `json:"nsfw"`
}

// Read-only lookups against the platform's user and content directory.
type Directory interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetSocialLinks(ctx context.Context, username string) ([]SocialLink, error)
	// Most recent posts by the given author, newest first.
	GetRecentPosts(ctx context.Context, username string, limit int) ([]Post, error)
	// Most recent posts in the given installation, newest first.
	GetNewPosts(ctx context.Context, install string, limit int) ([]Post, error)
	GetModerators(ctx context.Context, install string) ([]User, error)
	GetApprovedUsers(ctx context.Context, install string) ([]User, error)
	GetUserExtra(ctx context.Context, username string) (*UserExtra, error)
}

type BanRequest struct {
	Install  string `json:"install"`
	Username string `json:"username"`
	// Days; zero means permanent.
	Duration  int    `json:"duration"`
	Reason    string `json:"reason"`
	Note      string `json:"note"`
	ContextID string `json:"contextId"`
	Message   string `json:"message"`
}

// Side-effecting moderation actions. Remove and ban are expected to be
// idempotent no-ops on an already-removed or already-banned target; the
// executor's re-entrant retry loop depends on that holding.
type ModService interface {
	RemovePost(ctx context.Context, postID string) error
	RemoveComment(ctx context.Context, commentID string, spam bool) error
	BanUser(ctx context.Context, req BanRequest) error
	// Returns the ID of the newly created comment.
	SubmitComment(ctx context.Context, contentID, text string) (string, error)
	DistinguishComment(ctx context.Context, commentID string) error
	SendPrivateMessage(ctx context.Context, to, subject, text string) error
	CreateModNotification(ctx context.Context, subject, body, install string) error
}
