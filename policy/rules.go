package policy

// How many of the actor's most recent posts the sticky-post rule scans.
const stickyPostLookback = 20

type PostRuleFunc = func(c *PostContext) (Reason, error)
type CommentRuleFunc = func(c *CommentContext) (Reason, error)

// RuleSet holds the ordered detection rules. Order is priority: the first
// rule returning a non-none reason wins and evaluation stops. Each rule is
// independently toggled by its settings flag, so a single rule set covers
// every deployment configuration.
type RuleSet struct {
	PostRules []PostRuleFunc
	// Subset evaluated for periodic feed scans. The scan exists to catch
	// authors whose social links were blacklisted after submission, so
	// only the social-link signal is re-checked.
	ScanRules    []PostRuleFunc
	CommentRules []CommentRuleFunc
}

func DefaultRules() RuleSet {
	return RuleSet{
		PostRules: []PostRuleFunc{
			SocialLinkDomainRule,
			PostLinkDomainRule,
			PostBodyDomainRule,
			NSFWProfileRule,
			StickyPostDomainRule,
		},
		ScanRules: []PostRuleFunc{
			SocialLinkDomainRule,
		},
		CommentRules: []CommentRuleFunc{
			CommentDomainRule,
		},
	}
}

// EvaluatePost runs the post rules in priority order and returns the
// single winning reason, or ReasonNone. An empty blacklist short-circuits
// the whole evaluation; this is a permissive default, not an error.
func (r *RuleSet) EvaluatePost(c *PostContext) (Reason, error) {
	if len(c.Domains) == 0 {
		return ReasonNone, nil
	}
	rules := r.PostRules
	if c.scanOnly {
		rules = r.ScanRules
	}
	for _, f := range rules {
		reason, err := f(c)
		if err != nil {
			return ReasonNone, err
		}
		if reason != ReasonNone {
			return reason, nil
		}
	}
	return ReasonNone, nil
}

func (r *RuleSet) EvaluateComment(c *CommentContext) (Reason, error) {
	if len(c.Domains) == 0 {
		return ReasonNone, nil
	}
	for _, f := range r.CommentRules {
		reason, err := f(c)
		if err != nil {
			return ReasonNone, err
		}
		if reason != ReasonNone {
			return reason, nil
		}
	}
	return ReasonNone, nil
}

// Priority 1: any of the actor's social-link outbound URLs contains a
// blacklisted domain.
func SocialLinkDomainRule(c *PostContext) (Reason, error) {
	if !c.Settings.RemoveDomainInSocialLinks {
		return ReasonNone, nil
	}
	links, err := c.SocialLinks()
	if err != nil {
		return ReasonNone, err
	}
	for _, link := range links {
		if MatchesAny(link.OutboundURL, c.Domains) {
			return ReasonSocialLinkDomain, nil
		}
	}
	return ReasonNone, nil
}

// Priority 2: the post's URL contains a blacklisted domain.
func PostLinkDomainRule(c *PostContext) (Reason, error) {
	if !c.Settings.RemoveDomainInPostLink {
		return ReasonNone, nil
	}
	if MatchesAny(c.Post.URL, c.Domains) {
		return ReasonPostLinkDomain, nil
	}
	return ReasonNone, nil
}

// Priority 3: the post's self-text contains a blacklisted domain.
func PostBodyDomainRule(c *PostContext) (Reason, error) {
	if !c.Settings.RemoveDomainInPostBody {
		return ReasonNone, nil
	}
	if MatchesAny(c.Post.SelfText, c.Domains) {
		return ReasonPostBodyDomain, nil
	}
	return ReasonNone, nil
}

// Priority 4: the actor's profile is flagged NSFW, regardless of content.
// A failed extended-profile fetch counts as "no match"; this signal fails
// open on its own, not the whole pipeline.
func NSFWProfileRule(c *PostContext) (Reason, error) {
	if !c.Settings.RemoveNSFWProfile {
		return ReasonNone, nil
	}
	extra, err := c.UserExtra()
	if err != nil {
		c.Logger.Debug("extended profile fetch failed, skipping NSFW check", "err", err)
		return ReasonNone, nil
	}
	if extra.NSFW {
		return ReasonNSFWProfile, nil
	}
	return ReasonNone, nil
}

// Priority 5: any of the actor's stickied posts (most recent N, newest
// first) has a URL or body containing a blacklisted domain.
func StickyPostDomainRule(c *PostContext) (Reason, error) {
	if !c.Settings.RemoveDomainInStickyPosts {
		return ReasonNone, nil
	}
	posts, err := c.RecentPosts(stickyPostLookback)
	if err != nil {
		return ReasonNone, err
	}
	for _, p := range posts {
		if !p.Stickied {
			continue
		}
		if MatchesAny(p.URL, c.Domains) || MatchesAny(p.Body, c.Domains) {
			return ReasonStickyPostDomain, nil
		}
	}
	return ReasonNone, nil
}

// Comment events have a single rule: comment body contains a blacklisted
// domain.
func CommentDomainRule(c *CommentContext) (Reason, error) {
	if !c.Settings.RemoveDomainInComment {
		return ReasonNone, nil
	}
	if MatchesAny(c.Comment.Body, c.Domains) {
		return ReasonCommentDomain, nil
	}
	return ReasonNone, nil
}
