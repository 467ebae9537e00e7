package policy

// Reason identifies the single detection outcome selected for an event.
// At most one reason applies; selection is by fixed rule priority.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonSocialLinkDomain Reason = "social-link-domain"
	ReasonPostLinkDomain   Reason = "post-link-domain"
	ReasonPostBodyDomain   Reason = "post-body-domain"
	ReasonNSFWProfile      Reason = "nsfw-profile"
	ReasonStickyPostDomain Reason = "sticky-post-domain"
	ReasonCommentDomain    Reason = "comment-domain"
)

var reasonDescriptions = map[Reason]string{
	ReasonSocialLinkDomain: "Blacklisted domain found in user's social links",
	ReasonPostLinkDomain:   "Blacklisted domain found in post link",
	ReasonPostBodyDomain:   "Blacklisted domain found in post body/content",
	ReasonNSFWProfile:      "NSFW profile",
	ReasonStickyPostDomain: "Blacklisted domain found in user's sticky post",
	ReasonCommentDomain:    "Blacklisted domain found in user's comment",
}

// Human-readable form, used in moderator notifications.
func (r Reason) Description() string {
	if d, ok := reasonDescriptions[r]; ok {
		return d
	}
	return "None"
}
