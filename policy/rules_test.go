package policy

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modwatch/modwatch/platform"
)

func newTestPostContext(fix *TestFixture, s *Settings, evt PostEvent, actor ActorMeta) *PostContext {
	return &PostContext{
		baseContext: baseContext{
			Ctx:      context.Background(),
			Logger:   slog.Default(),
			Install:  "r/test",
			Actor:    actor,
			Domains:  s.Domains(),
			Settings: s,
			engine:   fix.Engine,
		},
		Post: evt,
	}
}

func TestRulePriority(t *testing.T) {
	assert := assert.New(t)

	fix := EngineTestFixture()
	s := fix.Settings.Settings
	s.RemoveDomainInSocialLinks = true
	s.RemoveDomainInPostLink = true

	fix.Directory.Insert(platform.User{ID: "u1", Username: "mallory"})
	fix.Directory.Links["mallory"] = []platform.SocialLink{
		{Title: "ig", OutboundURL: "https://spam.com/mallory"},
	}

	// both the social-link and post-link rules match; the social-link
	// rule has higher priority and must win
	evt := PostEvent{ID: "p1", URL: "http://spam.com/x"}
	c := newTestPostContext(fix, s, evt, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err := fix.Engine.Rules.EvaluatePost(c)
	assert.NoError(err)
	assert.Equal(ReasonSocialLinkDomain, reason)

	// without the social-link signal the post-link rule wins
	fix.Directory.Links["mallory"] = nil
	c = newTestPostContext(fix, s, evt, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err = fix.Engine.Rules.EvaluatePost(c)
	assert.NoError(err)
	assert.Equal(ReasonPostLinkDomain, reason)
}

func TestRulesDisabledFlags(t *testing.T) {
	assert := assert.New(t)

	fix := EngineTestFixture()
	s := fix.Settings.Settings
	s.RemoveDomainInSocialLinks = false
	s.RemoveDomainInPostLink = false
	s.RemoveDomainInPostBody = false

	fix.Directory.Insert(platform.User{ID: "u1", Username: "mallory"})
	fix.Directory.Links["mallory"] = []platform.SocialLink{
		{OutboundURL: "https://spam.com/mallory"},
	}

	evt := PostEvent{ID: "p1", URL: "http://spam.com/x", SelfText: "visit spam.com"}
	c := newTestPostContext(fix, s, evt, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err := fix.Engine.Rules.EvaluatePost(c)
	assert.NoError(err)
	assert.Equal(ReasonNone, reason)
}

func TestEmptyBlacklistShortCircuits(t *testing.T) {
	assert := assert.New(t)

	fix := EngineTestFixture()
	s := fix.Settings.Settings
	s.BlacklistedDomains = ""
	s.RemoveNSFWProfile = true

	fix.Directory.Insert(platform.User{ID: "u1", Username: "mallory"})
	fix.Directory.Extras["mallory"] = platform.UserExtra{NSFW: true}

	// even the NSFW rule (which needs no domains) is skipped when the
	// blacklist is empty
	c := newTestPostContext(fix, s, PostEvent{ID: "p1"}, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err := fix.Engine.Rules.EvaluatePost(c)
	assert.NoError(err)
	assert.Equal(ReasonNone, reason)
}

func TestNSFWProfileRuleFailsOpen(t *testing.T) {
	assert := assert.New(t)

	fix := EngineTestFixture()
	s := fix.Settings.Settings
	s.RemoveDomainInSocialLinks = false
	s.RemoveNSFWProfile = true

	fix.Directory.Insert(platform.User{ID: "u1", Username: "mallory"})
	fix.Directory.Extras["mallory"] = platform.UserExtra{NSFW: true}

	c := newTestPostContext(fix, s, PostEvent{ID: "p1"}, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err := fix.Engine.Rules.EvaluatePost(c)
	assert.NoError(err)
	assert.Equal(ReasonNSFWProfile, reason)

	// a failing extended-profile fetch means "signal absent", not an error
	fix.Directory.ExtraErr = fmt.Errorf("upstream timeout")
	c = newTestPostContext(fix, s, PostEvent{ID: "p1"}, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err = fix.Engine.Rules.EvaluatePost(c)
	assert.NoError(err)
	assert.Equal(ReasonNone, reason)
}

func TestStickyPostRule(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fix := EngineTestFixture()
	s := fix.Settings.Settings
	s.RemoveDomainInSocialLinks = false
	s.RemoveDomainInStickyPosts = true

	fix.Directory.Insert(platform.User{ID: "u1", Username: "mallory"})
	fix.Directory.UserPosts["mallory"] = []platform.Post{
		{ID: "old1", URL: "http://fine.example/a", Stickied: false},
		{ID: "old2", Body: "come to spam.com now", Stickied: true},
	}

	c := newTestPostContext(fix, s, PostEvent{ID: "p1"}, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err := fix.Engine.Rules.EvaluatePost(c)
	require.NoError(err)
	assert.Equal(ReasonStickyPostDomain, reason)

	// non-stickied posts containing the domain do not match
	fix.Directory.UserPosts["mallory"] = []platform.Post{
		{ID: "old2", Body: "come to spam.com now", Stickied: false},
	}
	c = newTestPostContext(fix, s, PostEvent{ID: "p1"}, ActorMeta{ID: "u1", Username: "mallory"})
	reason, err = fix.Engine.Rules.EvaluatePost(c)
	require.NoError(err)
	assert.Equal(ReasonNone, reason)
}

func TestCommentRule(t *testing.T) {
	assert := assert.New(t)

	fix := EngineTestFixture()
	s := fix.Settings.Settings
	s.RemoveDomainInComment = true

	c := &CommentContext{
		baseContext: baseContext{
			Ctx:      context.Background(),
			Logger:   slog.Default(),
			Install:  "r/test",
			Actor:    ActorMeta{ID: "u1", Username: "mallory"},
			Domains:  s.Domains(),
			Settings: s,
			engine:   fix.Engine,
		},
		Comment: CommentEvent{ID: "c1", Body: "check SPAM.com out"},
	}
	reason, err := fix.Engine.Rules.EvaluateComment(c)
	assert.NoError(err)
	assert.Equal(ReasonCommentDomain, reason)

	s.RemoveDomainInComment = false
	reason, err = fix.Engine.Rules.EvaluateComment(c)
	assert.NoError(err)
	assert.Equal(ReasonNone, reason)
}
