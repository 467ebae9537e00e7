package policy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modwatch/modwatch/platform"
	"github.com/modwatch/modwatch/policy/kvstore"
	"github.com/modwatch/modwatch/policy/ledger"
)

// kvstore namespace for removal-notice idempotency records
// (content id -> notice comment id).
const nsRemovalComment = "removal-comment"

// How many feed posts one periodic scan inspects.
const FeedScanLimit = 30

// Runtime for evaluating detection rules against content events and
// executing moderation actions.
//
// Careful when initializing: several fields must not be nil even though
// they are interface or pointer types.
type Engine struct {
	Logger    *slog.Logger
	Directory platform.Directory
	Mod       platform.ModService
	Settings  SettingsStore
	Counters  ledger.CountStore
	Records   kvstore.KVStore
	Rules     RuleSet

	// Bounded retry for the action sequence. Zero values fall back to
	// the defaults (6 attempts, 100ms fixed delay).
	MaxAttempts int
	RetryDelay  time.Duration
}

const (
	defaultMaxAttempts = 6
	defaultRetryDelay  = 100 * time.Millisecond
)

func (eng *Engine) maxAttempts() int {
	if eng.MaxAttempts > 0 {
		return eng.MaxAttempts
	}
	return defaultMaxAttempts
}

func (eng *Engine) retryDelay() time.Duration {
	if eng.RetryDelay > 0 {
		return eng.RetryDelay
	}
	return defaultRetryDelay
}

// ProcessPostSubmit handles a content-submission event end to end: load
// settings, check exemption, evaluate rules, and on a violation run the
// action executor.
func (eng *Engine) ProcessPostSubmit(ctx context.Context, install string, evt PostEvent) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("policy event execution exception", "err", r, "install", install, "post", evt.ID)
			eventErrorCount.WithLabelValues("post-submit").Inc()
		}
	}()
	eventProcessCount.WithLabelValues("post-submit").Inc()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("post-submit").Observe(time.Since(start).Seconds())
	}()

	c, reason, err := eng.evaluatePostEvent(ctx, install, evt, false)
	if err != nil {
		eventErrorCount.WithLabelValues("post-submit").Inc()
		return err
	}
	if c == nil || reason == ReasonNone {
		return nil
	}
	return eng.executePostRemoval(c, reason)
}

// ProcessCommentCreate handles a comment-creation event: exemption check,
// the comment-only rule, and on a match the comment removal sequence.
// Comment removals do not feed the escalation ledger.
func (eng *Engine) ProcessCommentCreate(ctx context.Context, install string, evt CommentEvent) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("policy event execution exception", "err", r, "install", install, "comment", evt.ID)
			eventErrorCount.WithLabelValues("comment-create").Inc()
		}
	}()
	eventProcessCount.WithLabelValues("comment-create").Inc()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("comment-create").Observe(time.Since(start).Seconds())
	}()

	logger := eng.Logger.With("install", install, "comment", evt.ID, "author", evt.AuthorName)

	s, err := eng.Settings.Load(ctx, install)
	if err != nil {
		eventErrorCount.WithLabelValues("comment-create").Inc()
		return err
	}
	if evt.AuthorName == "" {
		logger.Debug("comment event without author, skipping")
		return nil
	}

	exempt, err := eng.isExempt(ctx, install, evt.AuthorName, s)
	if err != nil {
		eventErrorCount.WithLabelValues("comment-create").Inc()
		return err
	}
	if exempt {
		logger.Debug("author is exempt, skipping")
		return nil
	}

	c := &CommentContext{
		baseContext: baseContext{
			Ctx:      ctx,
			Logger:   logger,
			Install:  install,
			Actor:    ActorMeta{ID: evt.AuthorID, Username: evt.AuthorName},
			Domains:  s.Domains(),
			Settings: s,
			engine:   eng,
		},
		Comment: evt,
	}
	reason, err := eng.Rules.EvaluateComment(c)
	if err != nil {
		eventErrorCount.WithLabelValues("comment-create").Inc()
		return err
	}
	logger.Info("comment event evaluated", "reason", reason)
	if reason == ReasonNone {
		return nil
	}
	return eng.executeCommentRemoval(c, reason)
}

// ProcessFeedScan enumerates the installation's most recent posts and
// re-checks the social-link rule for each non-removed, non-approved post.
// This catches authors whose social links were blacklisted after their
// post was submitted.
func (eng *Engine) ProcessFeedScan(ctx context.Context, install string) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("policy event execution exception", "err", r, "install", install, "type", "feed-scan")
			eventErrorCount.WithLabelValues("feed-scan").Inc()
		}
	}()
	eventProcessCount.WithLabelValues("feed-scan").Inc()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("feed-scan").Observe(time.Since(start).Seconds())
	}()

	logger := eng.Logger.With("install", install, "type", "feed-scan")

	s, err := eng.Settings.Load(ctx, install)
	if err != nil {
		eventErrorCount.WithLabelValues("feed-scan").Inc()
		return err
	}
	if !s.RemoveDomainInSocialLinks || len(s.Domains()) == 0 {
		return nil
	}

	posts, err := eng.Directory.GetNewPosts(ctx, install, FeedScanLimit)
	if err != nil {
		eventErrorCount.WithLabelValues("feed-scan").Inc()
		return err
	}

	for _, p := range posts {
		if p.Removed || p.Approved {
			continue
		}
		evt := PostEvent{
			ID:         p.ID,
			Title:      p.Title,
			URL:        p.URL,
			SelfText:   p.Body,
			Permalink:  p.Permalink,
			AuthorID:   p.AuthorID,
			AuthorName: p.AuthorName,
		}
		c, reason, err := eng.evaluatePostEvent(ctx, install, evt, true)
		if err != nil {
			logger.Error("feed scan evaluation failed", "post", p.ID, "err", err)
			continue
		}
		if c == nil || reason == ReasonNone {
			continue
		}
		if err := eng.executePostRemoval(c, reason); err != nil {
			logger.Error("feed scan action failed", "post", p.ID, "err", err)
		}
	}
	return nil
}

// Shared front half of post handling: settings, author lookup, exemption,
// rule evaluation. Returns a nil context when the event short-circuits
// (exempt actor, missing author).
func (eng *Engine) evaluatePostEvent(ctx context.Context, install string, evt PostEvent, scan bool) (*PostContext, Reason, error) {
	logger := eng.Logger.With("install", install, "post", evt.ID, "author", evt.AuthorName)

	s, err := eng.Settings.Load(ctx, install)
	if err != nil {
		return nil, ReasonNone, err
	}

	if evt.AuthorID == "" && evt.AuthorName == "" {
		logger.Debug("post event without author, skipping")
		return nil, ReasonNone, nil
	}
	actor, err := eng.lookupActor(ctx, evt)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			logger.Debug("author not found, skipping")
			return nil, ReasonNone, nil
		}
		return nil, ReasonNone, err
	}

	exempt, err := eng.isExempt(ctx, install, actor.Username, s)
	if err != nil {
		return nil, ReasonNone, err
	}
	if exempt {
		logger.Debug("author is exempt, skipping")
		return nil, ReasonNone, nil
	}

	c := &PostContext{
		baseContext: baseContext{
			Ctx:      ctx,
			Logger:   logger,
			Install:  install,
			Actor:    actor,
			Domains:  s.Domains(),
			Settings: s,
			engine:   eng,
		},
		Post:     evt,
		scanOnly: scan,
	}
	reason, err := eng.Rules.EvaluatePost(c)
	if err != nil {
		return nil, ReasonNone, err
	}
	logger.Info("post event evaluated", "reason", reason, "scan", scan)
	return c, reason, nil
}

func (eng *Engine) lookupActor(ctx context.Context, evt PostEvent) (ActorMeta, error) {
	if evt.AuthorID != "" {
		u, err := eng.Directory.GetUserByID(ctx, evt.AuthorID)
		if err != nil {
			return ActorMeta{}, err
		}
		return ActorMeta{ID: u.ID, Username: u.Username}, nil
	}
	u, err := eng.Directory.GetUserByUsername(ctx, evt.AuthorName)
	if err != nil {
		return ActorMeta{}, err
	}
	return ActorMeta{ID: u.ID, Username: u.Username}, nil
}
