package policy

import (
	"log/slog"
	"time"

	"github.com/modwatch/modwatch/platform"
	"github.com/modwatch/modwatch/policy/kvstore"
	"github.com/modwatch/modwatch/policy/ledger"
)

// TestFixture bundles an engine with handles on its mocks and stores, so
// tests can seed state and inspect recorded actions.
type TestFixture struct {
	Engine    *Engine
	Directory *platform.MockDirectory
	Mod       *platform.MockModService
	Counters  *ledger.MemCountStore
	Settings  *StaticSettingsStore
}

// EngineTestFixture returns an engine wired to in-memory stores and
// recording mocks, with the retry delay shortened. Intentionally exported,
// for use in other packages.
func EngineTestFixture() *TestFixture {
	dir := platform.NewMockDirectory()
	mod := platform.NewMockModService()
	counters := ledger.NewMemCountStore()
	settings := &StaticSettingsStore{Settings: DefaultSettings()}
	settings.Settings.BlacklistedDomains = "spam.com, evil.example"

	eng := &Engine{
		Logger:      slog.Default(),
		Directory:   &dir,
		Mod:         mod,
		Settings:    settings,
		Counters:    counters,
		Records:     kvstore.NewMemKVStore(1000, time.Hour),
		Rules:       DefaultRules(),
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}
	return &TestFixture{
		Engine:    eng,
		Directory: &dir,
		Mod:       mod,
		Counters:  counters,
		Settings:  settings,
	}
}
