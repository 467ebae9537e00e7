package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Deliberately loose: one label, a dot, and a TLD-shaped tail. The intent
// is to reject obvious junk at configuration time, not to fully validate
// hostnames.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeDomains splits a comma-separated blacklist into individual
// entries: trimmed, lower-cased, empties dropped. Order is preserved and
// duplicates are kept.
func NormalizeDomains(raw string) []string {
	var out []string
	for _, d := range strings.Split(raw, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// MatchesAny reports whether any blacklisted domain appears as a substring
// of the target. Matching is intentionally permissive (containment, not a
// strict hostname parse) so that domain mentions are caught anywhere in a
// URL or free text. An empty domain list never matches.
func MatchesAny(target string, domains []string) bool {
	target = strings.ToLower(target)
	for _, d := range domains {
		if strings.Contains(target, d) {
			return true
		}
	}
	return false
}

// ValidateDomainList checks every comma-separated entry against the
// hostname-shaped pattern, rejecting the whole value on the first invalid
// entry. Used when settings are written, not during evaluation.
func ValidateDomainList(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("blacklisted domain list is required")
	}
	for _, d := range strings.Split(raw, ",") {
		d = strings.TrimSpace(d)
		if !domainPattern.MatchString(d) {
			return fmt.Errorf("invalid domain: %q", d)
		}
	}
	return nil
}
