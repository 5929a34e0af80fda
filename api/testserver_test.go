package api

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/Shoaibashk/serialmonitor/config"
	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/Shoaibashk/serialmonitor/internal/decode"
	"github.com/Shoaibashk/serialmonitor/internal/eventbus"
	"github.com/Shoaibashk/serialmonitor/internal/macro"
	"github.com/Shoaibashk/serialmonitor/internal/store"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a fully wired Server against temp-dir-backed stores
// and a manager with no real device access, for exercising the REST/WS
// surface in isolation.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.MacrosPath = filepath.Join(dir, "macros.json")
	cfg.Store.ProfilesPath = filepath.Join(dir, "profiles.json")

	registry := decode.NewRegistry(nil, nil)
	bus := eventbus.NewBus()
	sink := eventbus.NewSink(bus, registry)

	defaultCfg, err := cfg.Serial.Defaults.ToPortConfig()
	require.NoError(t, err)
	manager := channel.NewManager(sink, defaultCfg)

	scanner, err := channel.NewScanner(sink, nil, nil)
	require.NoError(t, err)

	macroStore, err := store.NewMacroStore(cfg.Store.MacrosPath)
	require.NoError(t, err)
	profileStore, err := store.NewProfileStore(cfg.Store.ProfilesPath)
	require.NoError(t, err)

	executor := macro.NewExecutor(manager)

	return NewServer(Deps{
		Config:       cfg,
		Manager:      manager,
		Scanner:      scanner,
		Registry:     registry,
		Bus:          bus,
		MacroStore:   macroStore,
		ProfileStore: profileStore,
		Executor:     executor,
		Logger:       log.New(io.Discard),
	})
}
