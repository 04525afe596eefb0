// Package config reads the session parameters from hanzo.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/model"
)

const DefaultPath = "hanzo.toml"

type file struct {
	// milliseconds
	InputTimeout     *int64 `toml:"input_timeout"`
	AttackerActions  *int   `toml:"attacker_actions"`
	DefenderActions  *int   `toml:"defender_actions"`
	DetectionActions *int   `toml:"detection_actions"`
	ViewconeLength   *int   `toml:"viewcone_length"`
	ViewconeWidth    *int   `toml:"viewcone_width"`
	// minutes
	TurnTime  *int `toml:"turn_time"`
	SetupTime *int `toml:"setup_time"`
	Players   *int `toml:"players"`
	Guards    *int `toml:"num_guards"`
	Len       *int `toml:"len"`
}

// Load overlays the file at path on the defaults. A missing file is not an
// error.
func Load(path string) (model.Config, error) {
	cfg := model.DefaultConfig()
	var f file
	md, err := toml.DecodeFile(path, &f)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Infof("config %s not found, using defaults", path)
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warnf("config %s: unknown keys %v", path, undecoded)
	}
	log.Infof("config read from %s", path)
	apply(&cfg, f)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func apply(cfg *model.Config, f file) {
	if f.InputTimeout != nil {
		cfg.InputTimeout = time.Duration(*f.InputTimeout) * time.Millisecond
	}
	setInt(&cfg.AttackerActions, f.AttackerActions)
	setInt(&cfg.DefenderActions, f.DefenderActions)
	setInt(&cfg.DetectionActions, f.DetectionActions)
	setInt(&cfg.ViewconeLength, f.ViewconeLength)
	setInt(&cfg.ViewconeWidth, f.ViewconeWidth)
	setInt(&cfg.Players, f.Players)
	setInt(&cfg.Guards, f.Guards)
	setInt(&cfg.Len, f.Len)
	if f.TurnTime != nil {
		cfg.TurnTime = time.Duration(*f.TurnTime) * time.Minute
	}
	if f.SetupTime != nil {
		cfg.SetupTime = time.Duration(*f.SetupTime) * time.Minute
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
