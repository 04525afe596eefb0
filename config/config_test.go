package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zucenko/hanzo/model"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hanzo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	cfg, err := Load(write(t, `
input_timeout = 150
attacker_actions = 7
viewcone_width = 4
turn_time = 3
players = 3
num_guards = 2
len = 20
`))
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, cfg.InputTimeout)
	assert.Equal(t, 7, cfg.AttackerActions)
	assert.Equal(t, 4, cfg.ViewconeWidth)
	assert.Equal(t, 3*time.Minute, cfg.TurnTime)
	assert.Equal(t, 3, cfg.Players)
	assert.Equal(t, 2, cfg.Guards)
	assert.Equal(t, 20, cfg.Len)

	def := model.DefaultConfig()
	assert.Equal(t, def.DefenderActions, cfg.DefenderActions)
	assert.Equal(t, def.ViewconeLength, cfg.ViewconeLength)
	assert.Equal(t, def.SetupTime, cfg.SetupTime)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(write(t, "players = 1\n"))
	assert.Error(t, err)
	_, err = Load(write(t, "players = \"four\"\n"))
	assert.Error(t, err)
}
