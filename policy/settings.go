package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Keep in sync with the settings UI copy.
const DefaultRemovalMessage = "Your submission has been removed based on your profile information or posted content. Please review the rules of this community for further information on what is allowed/disallowed."

// BanDisabled is the select value which turns ban escalation off. This is
// a valid configuration state, not an error.
const BanDisabled = "Disabled"

// Per-installation moderation settings. Loaded fresh from the settings
// store on every event; nothing here is cached across events.
type Settings struct {
	// Comma-separated blacklisted domain fragments. Required; validated
	// by ValidateDomainList when written.
	BlacklistedDomains string `json:"blacklistedDomains"`
	RemovalMessage     string `json:"removalMessage"`

	RemoveDomainInSocialLinks bool `json:"removeDomainInSocialLinks"`
	RemoveDomainInPostLink    bool `json:"removeDomainInPostLink"`
	RemoveDomainInPostBody    bool `json:"removeDomainInPostBody"`
	RemoveDomainInStickyPosts bool `json:"removeDomainInStickyPosts"`
	RemoveDomainInComment     bool `json:"removeDomainInComment"`
	RemoveNSFWProfile         bool `json:"removeNSFWProfile"`

	NotifyModerators    bool `json:"notifyModerators"`
	IgnoreModerators    bool `json:"ignoreModerators"`
	IgnoreApprovedUsers bool `json:"ignoreApprovedUsers"`

	// "Disabled", or the number of removals after which the author gets a
	// permanent ban ("1".."10").
	BanAfterRemovals string `json:"banAfterRemovals"`
}

func DefaultSettings() *Settings {
	return &Settings{
		RemovalMessage:            DefaultRemovalMessage,
		RemoveDomainInSocialLinks: true,
		IgnoreModerators:          true,
		IgnoreApprovedUsers:       true,
		BanAfterRemovals:          BanDisabled,
	}
}

// Domains returns the normalized blacklist. An empty result degrades rule
// evaluation to "no match"; it is never an error here.
func (s *Settings) Domains() []string {
	return NormalizeDomains(s.BlacklistedDomains)
}

// BanThreshold parses BanAfterRemovals. ok is false when escalation is
// disabled or the value is malformed.
func (s *Settings) BanThreshold() (int, bool) {
	if s.BanAfterRemovals == "" || s.BanAfterRemovals == BanDisabled {
		return 0, false
	}
	n, err := strconv.Atoi(s.BanAfterRemovals)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Validate applies write-time checks. Evaluation-time code never calls
// this; a store holding bad values degrades to no-match instead.
func (s *Settings) Validate() error {
	if err := ValidateDomainList(s.BlacklistedDomains); err != nil {
		return err
	}
	if s.BanAfterRemovals != "" && s.BanAfterRemovals != BanDisabled {
		n, err := strconv.Atoi(s.BanAfterRemovals)
		if err != nil || n < 1 || n > 10 {
			return fmt.Errorf("invalid banAfterRemovals value: %q", s.BanAfterRemovals)
		}
	}
	return nil
}

type SettingsStore interface {
	Load(ctx context.Context, install string) (*Settings, error)
}

// Fixed settings for tests and single-installation deployments.
type StaticSettingsStore struct {
	Settings *Settings
}

var _ SettingsStore = (*StaticSettingsStore)(nil)

func (s *StaticSettingsStore) Load(ctx context.Context, install string) (*Settings, error) {
	if s.Settings == nil {
		return DefaultSettings(), nil
	}
	cpy := *s.Settings
	return &cpy, nil
}

// FileSettingsStore reads a JSON file mapping installation name to
// settings. The file is re-read on every load, so edits take effect on
// the next event without a restart.
type FileSettingsStore struct {
	Path string
}

var _ SettingsStore = (*FileSettingsStore)(nil)

func (s *FileSettingsStore) Load(ctx context.Context, install string) (*Settings, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	entry, ok := all[install]
	if !ok {
		return DefaultSettings(), nil
	}
	// unmarshal over the defaults, so fields an entry omits keep their
	// documented default values instead of Go zero values
	out := DefaultSettings()
	if err := json.Unmarshal(entry, out); err != nil {
		return nil, fmt.Errorf("parsing settings for %q: %w", install, err)
	}
	return out, nil
}
