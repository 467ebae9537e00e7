package policy

import (
	"context"
)

// isExempt decides whether the actor bypasses action entirely: current
// moderators and approved members, each behind its own settings flag.
// Rosters are fetched fresh on every call; actor status may have changed
// since the last check, and the executor re-checks just before acting.
func (eng *Engine) isExempt(ctx context.Context, install, username string, s *Settings) (bool, error) {
	if s.IgnoreModerators {
		mods, err := eng.Directory.GetModerators(ctx, install)
		if err != nil {
			return false, err
		}
		for _, mod := range mods {
			if mod.Username == username {
				return true, nil
			}
		}
	}
	if s.IgnoreApprovedUsers {
		approved, err := eng.Directory.GetApprovedUsers(ctx, install)
		if err != nil {
			return false, err
		}
		for _, u := range approved {
			if u.Username == username {
				return true, nil
			}
		}
	}
	return false, nil
}
