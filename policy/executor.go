package policy

import (
	"fmt"
	"time"

	"github.com/modwatch/modwatch/platform"
)

// executePostRemoval runs the side-effecting action sequence for a post
// violation, retrying the whole sequence from the top on any failure.
// Every step tolerates re-entry after partial completion: the removal
// notice is guarded by a kvstore record, and remove/ban are idempotent
// no-ops on the platform side.
func (eng *Engine) executePostRemoval(c *PostContext, reason Reason) error {
	var lastErr error
	for attempt := 1; attempt <= eng.maxAttempts(); attempt++ {
		if attempt > 1 {
			actionRetryCount.WithLabelValues("post").Inc()
			time.Sleep(eng.retryDelay())
		}
		err := eng.removePostOnce(c, reason)
		if err == nil {
			return nil
		}
		lastErr = err
		c.Logger.Warn("post removal attempt failed", "attempt", attempt, "err", err)
	}
	// exhausted: the event drops out of the pipeline, but loudly
	actionDroppedCount.WithLabelValues("post").Inc()
	c.Logger.Error("post removal dropped after retries", "attempts", eng.maxAttempts(), "reason", reason, "err", lastErr)
	return fmt.Errorf("post removal exhausted %d attempts: %w", eng.maxAttempts(), lastErr)
}

// One full pass of the action sequence. Steps in order, each individually
// guarded; returning nil means the pass completed (or aborted cleanly on
// a fresh exemption).
func (eng *Engine) removePostOnce(c *PostContext, reason Reason) error {
	ctx := c.Ctx
	s := c.Settings

	// re-check exemption right before acting; status may have changed
	// since evaluation
	exempt, err := eng.isExempt(ctx, c.Install, c.Actor.Username, s)
	if err != nil {
		return fmt.Errorf("re-checking exemption: %w", err)
	}
	if exempt {
		c.Logger.Info("author became exempt, aborting action")
		return nil
	}

	if err := eng.Mod.RemovePost(ctx, c.Post.ID); err != nil {
		return fmt.Errorf("removing post: %w", err)
	}
	postsRemovedCount.WithLabelValues(string(reason)).Inc()

	// removal-notice comment, at most once per content id
	noticeKey := c.Install + "/" + c.Post.ID
	prev, err := eng.Records.Get(ctx, nsRemovalComment, noticeKey)
	if err != nil {
		return fmt.Errorf("reading removal record: %w", err)
	}
	if prev == "" {
		commentID, err := eng.Mod.SubmitComment(ctx, c.Post.ID, s.RemovalMessage)
		if err != nil {
			return fmt.Errorf("posting removal notice: %w", err)
		}
		if err := eng.Mod.DistinguishComment(ctx, commentID); err != nil {
			return fmt.Errorf("distinguishing removal notice: %w", err)
		}
		if err := eng.Records.Set(ctx, nsRemovalComment, noticeKey, commentID); err != nil {
			return fmt.Errorf("writing removal record: %w", err)
		}
		noticesPostedCount.Inc()
	}

	subject := fmt.Sprintf("Your post %q has been removed from %s", c.Post.Title, c.Install)
	text := fmt.Sprintf("%s\n\nPost link: %s", s.RemovalMessage, c.Post.Permalink)
	if err := eng.Mod.SendPrivateMessage(ctx, c.Actor.Username, subject, text); err != nil {
		return fmt.Errorf("messaging author: %w", err)
	}

	if s.NotifyModerators {
		body := fmt.Sprintf("A post has been removed.\n\nAuthor: %s\n\nPost title: %s\n\nPost link: %s\n\nRemoval reason: %s",
			c.Actor.Username, c.Post.Title, c.Post.Permalink, reason.Description())
		if err := eng.Mod.CreateModNotification(ctx, "post removal", body, c.Install); err != nil {
			return fmt.Errorf("notifying moderators: %w", err)
		}
	}

	count, err := eng.Counters.Increment(ctx, c.Install, c.Actor.Username)
	if err != nil {
		return fmt.Errorf("incrementing removal count: %w", err)
	}
	c.Logger.Info("post removed", "reason", reason, "removalCount", count)

	if threshold, ok := s.BanThreshold(); ok && count >= threshold {
		if err := eng.banActor(c, threshold); err != nil {
			return err
		}
	}
	return nil
}

func (eng *Engine) banActor(c *PostContext, threshold int) error {
	ctx := c.Ctx
	req := platform.BanRequest{
		Install:   c.Install,
		Username:  c.Actor.Username,
		Duration:  0, // permanent
		Reason:    "Breaking community rules",
		Note:      fmt.Sprintf("User is banned after %d removals", threshold),
		ContextID: c.Post.ID,
		Message:   "You have been banned for breaking the rules.",
	}
	if err := eng.Mod.BanUser(ctx, req); err != nil {
		return fmt.Errorf("banning user: %w", err)
	}
	bansIssuedCount.Inc()
	c.Logger.Warn("user banned", "threshold", threshold)

	body := fmt.Sprintf("A user has been banned after %d removal(s).\n\nAuthor: %s\n\nPost title: %s\n\nPost link: %s",
		threshold, c.Actor.Username, c.Post.Title, c.Post.Permalink)
	if err := eng.Mod.CreateModNotification(ctx, "user banned", body, c.Install); err != nil {
		return fmt.Errorf("notifying moderators of ban: %w", err)
	}

	// post-ban tracking is out of scope; clear the counter so a later
	// unban starts the actor fresh
	if err := eng.Counters.Reset(ctx, c.Install, c.Actor.Username); err != nil {
		return fmt.Errorf("resetting removal count: %w", err)
	}
	return nil
}

// executeCommentRemoval runs the comment variant of the action sequence:
// remove, message the author, optionally notify moderators. Comment
// removals do not increment the escalation ledger.
func (eng *Engine) executeCommentRemoval(c *CommentContext, reason Reason) error {
	var lastErr error
	for attempt := 1; attempt <= eng.maxAttempts(); attempt++ {
		if attempt > 1 {
			actionRetryCount.WithLabelValues("comment").Inc()
			time.Sleep(eng.retryDelay())
		}
		err := eng.removeCommentOnce(c, reason)
		if err == nil {
			return nil
		}
		lastErr = err
		c.Logger.Warn("comment removal attempt failed", "attempt", attempt, "err", err)
	}
	actionDroppedCount.WithLabelValues("comment").Inc()
	c.Logger.Error("comment removal dropped after retries", "attempts", eng.maxAttempts(), "reason", reason, "err", lastErr)
	return fmt.Errorf("comment removal exhausted %d attempts: %w", eng.maxAttempts(), lastErr)
}

func (eng *Engine) removeCommentOnce(c *CommentContext, reason Reason) error {
	ctx := c.Ctx
	s := c.Settings

	exempt, err := eng.isExempt(ctx, c.Install, c.Actor.Username, s)
	if err != nil {
		return fmt.Errorf("re-checking exemption: %w", err)
	}
	if exempt {
		c.Logger.Info("author became exempt, aborting action")
		return nil
	}

	if err := eng.Mod.RemoveComment(ctx, c.Comment.ID, false); err != nil {
		return fmt.Errorf("removing comment: %w", err)
	}
	commentsRemovedCount.Inc()

	subject := fmt.Sprintf("Your comment has been removed from %s", c.Install)
	text := fmt.Sprintf("%s\n\nComment link: %s", s.RemovalMessage, c.Comment.Permalink)
	if err := eng.Mod.SendPrivateMessage(ctx, c.Actor.Username, subject, text); err != nil {
		return fmt.Errorf("messaging author: %w", err)
	}

	if s.NotifyModerators {
		body := fmt.Sprintf("A comment has been removed.\n\nAuthor: %s\n\nComment text: %s\n\nComment link: %s\n\nRemoval reason: %s",
			c.Actor.Username, c.Comment.Body, c.Comment.Permalink, reason.Description())
		if err := eng.Mod.CreateModNotification(ctx, "comment removal", body, c.Install); err != nil {
			return fmt.Errorf("notifying moderators: %w", err)
		}
	}

	c.Logger.Info("comment removed", "reason", reason)
	return nil
}
