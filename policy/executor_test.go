package policy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modwatch/modwatch/platform"
)

func seedViolatingAuthor(fix *TestFixture) PostEvent {
	fix.Directory.Insert(platform.User{ID: "u1", Username: "mallory"})
	fix.Directory.Links["mallory"] = []platform.SocialLink{
		{Title: "ig", OutboundURL: "https://spam.com/mallory"},
	}
	return PostEvent{
		ID:         "p1",
		Title:      "nice post",
		URL:        "http://fine.example/x",
		Permalink:  "/r/test/p1",
		AuthorID:   "u1",
		AuthorName: "mallory",
	}
}

func TestExemptionShortCircuit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := EngineTestFixture()
	evt := seedViolatingAuthor(fix)

	// moderators are ignored: no removal, no message, no counter
	fix.Directory.Mods["r/test"] = []platform.User{{ID: "u1", Username: "mallory"}}
	assert.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	assert.Empty(fix.Mod.RemovedPosts)
	assert.Empty(fix.Mod.Messages)
	c, _ := fix.Counters.GetCount(ctx, "r/test", "mallory")
	assert.Equal(0, c)

	// with the flag off, moderator status no longer protects
	fix.Settings.Settings.IgnoreModerators = false
	assert.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	assert.Equal([]string{"p1"}, fix.Mod.RemovedPosts)
}

func TestIdempotentRemovalNotice(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := EngineTestFixture()
	evt := seedViolatingAuthor(fix)

	assert.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	assert.Len(fix.Mod.Comments, 1)
	assert.Equal([]string{fix.Mod.Comments[0].ID}, fix.Mod.Distinguished)

	// a second pass for the same content id must not post a second notice
	assert.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	assert.Len(fix.Mod.Comments, 1)
	// but the rest of the sequence still runs
	assert.Len(fix.Mod.Messages, 2)
	assert.Len(fix.Mod.RemovedPosts, 2)
}

func TestBanThreshold(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	fix := EngineTestFixture()
	fix.Settings.Settings.BanAfterRemovals = "3"
	fix.Settings.Settings.NotifyModerators = true
	evt := seedViolatingAuthor(fix)

	for i := 0; i < 3; i++ {
		evt.ID = fmt.Sprintf("p%d", i+1)
		require.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	}

	// the 3rd actioned violation triggers exactly one ban
	require.Len(fix.Mod.Bans, 1)
	ban := fix.Mod.Bans[0]
	assert.Equal("mallory", ban.Username)
	assert.Equal(0, ban.Duration)
	assert.Contains(ban.Note, "3 removals")

	// per-removal notifications plus the ban notification
	assert.Len(fix.Mod.Notifications, 4)

	// counter was cleared by the ban, so the next violation does not
	// re-ban
	c, err := fix.Counters.GetCount(ctx, "r/test", "mallory")
	require.NoError(err)
	assert.Equal(0, c)
	evt.ID = "p4"
	require.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	assert.Len(fix.Mod.Bans, 1)
}

func TestBanDisabled(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := EngineTestFixture()
	fix.Settings.Settings.BanAfterRemovals = BanDisabled
	evt := seedViolatingAuthor(fix)

	for i := 0; i < 5; i++ {
		evt.ID = fmt.Sprintf("p%d", i+1)
		assert.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	}
	assert.Empty(fix.Mod.Bans)
	c, _ := fix.Counters.GetCount(ctx, "r/test", "mallory")
	assert.Equal(5, c)
}

func TestRetryBound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := EngineTestFixture()
	fix.Engine.MaxAttempts = 3
	evt := seedViolatingAuthor(fix)

	// a permanently failing removal call exhausts the retry budget and
	// the event is dropped with an error
	fix.Mod.RemovePostErr = fmt.Errorf("service unavailable")
	err := fix.Engine.ProcessPostSubmit(ctx, "r/test", evt)
	assert.Error(err)
	assert.Empty(fix.Mod.RemovedPosts)
	assert.Empty(fix.Mod.Comments)

	// nothing past the failing step ran, including the counter
	c, _ := fix.Counters.GetCount(ctx, "r/test", "mallory")
	assert.Equal(0, c)
}

func TestRetryRecovers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := EngineTestFixture()
	evt := seedViolatingAuthor(fix)

	// first attempt fails at the notice step, after the removal record
	// was not yet written; the retry must complete without a duplicate
	fix.Mod.SubmitCommentErr = fmt.Errorf("flaky")
	err := fix.Engine.ProcessPostSubmit(ctx, "r/test", evt)
	assert.Error(err)

	fix.Mod.SubmitCommentErr = nil
	assert.NoError(fix.Engine.ProcessPostSubmit(ctx, "r/test", evt))
	assert.Len(fix.Mod.Comments, 1)
	assert.Len(fix.Mod.Messages, 1)
	c, _ := fix.Counters.GetCount(ctx, "r/test", "mallory")
	assert.Equal(1, c)
}

func TestCommentRemovalPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := EngineTestFixture()
	fix.Settings.Settings.RemoveDomainInComment = true
	fix.Settings.Settings.NotifyModerators = true
	fix.Directory.Insert(platform.User{ID: "u1", Username: "mallory"})

	evt := CommentEvent{
		ID:         "c1",
		Body:       "look at spam.com",
		Permalink:  "/r/test/p1/c1",
		PostID:     "p1",
		AuthorID:   "u1",
		AuthorName: "mallory",
	}
	assert.NoError(fix.Engine.ProcessCommentCreate(ctx, "r/test", evt))
	assert.Equal([]string{"c1"}, fix.Mod.RemovedComments)
	assert.Len(fix.Mod.Messages, 1)
	assert.Len(fix.Mod.Notifications, 1)

	// comment removals do not feed the escalation ledger
	c, _ := fix.Counters.GetCount(ctx, "r/test", "mallory")
	assert.Equal(0, c)

	// exempt authors are skipped before the rule even runs
	fix.Directory.Approved["r/test"] = []platform.User{{ID: "u1", Username: "mallory"}}
	evt.ID = "c2"
	assert.NoError(fix.Engine.ProcessCommentCreate(ctx, "r/test", evt))
	assert.Equal([]string{"c1"}, fix.Mod.RemovedComments)
}
