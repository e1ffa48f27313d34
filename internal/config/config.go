// Package config holds the small set of tunables the two cores expose
// as parameters instead of constants. Repository discovery, auth, and
// command-line configuration are out of scope (see spec non-goals);
// this is deliberately the narrowest possible config surface.
package config

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml"
)

// Wireproto holds tunables for the CORE A parser. Empty today; kept so
// a future protocol limit (e.g. max param length) has a home without
// changing the Config shape callers already depend on.
type Wireproto struct{}

// Submodule holds tunables for the CORE B validator and tree-diff engine.
type Submodule struct {
	// Fanout bounds how many recursive tree-diffs run concurrently
	// (spec §4.8 step 7 / §9). The source used 100; kept as the default.
	Fanout int `toml:"fanout"`

	// TreeCacheSize bounds the number of TreeID -> Tree entries kept in
	// the LRU wrapping TreeStore.LoadTree during one validation run.
	TreeCacheSize int `toml:"tree_cache_size"`

	// MetadataPrefix is the <prefix> in the ".<prefix>-<leaf>" metadata
	// basename rule (spec §3). Gitaly-style deployments use "git".
	MetadataPrefix string `toml:"metadata_prefix"`
}

// Config is the top-level tunables structure, TOML-decodable.
type Config struct {
	Wireproto Wireproto `toml:"wireproto"`
	Submodule Submodule `toml:"submodule"`
}

const (
	defaultFanout         = 100
	defaultTreeCacheSize  = 512
	defaultMetadataPrefix = "git"
)

// Load decodes a TOML tunables document and applies defaults.
func Load(r io.Reader) (Config, error) {
	var cfg Config
	if err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills in zero-valued tunables with their documented
// defaults. Safe to call on a Config built as a struct literal.
func (c *Config) ApplyDefaults() {
	if c.Submodule.Fanout == 0 {
		c.Submodule.Fanout = defaultFanout
	}
	if c.Submodule.TreeCacheSize == 0 {
		c.Submodule.TreeCacheSize = defaultTreeCacheSize
	}
	if c.Submodule.MetadataPrefix == "" {
		c.Submodule.MetadataPrefix = defaultMetadataPrefix
	}
}

// Validate rejects tunables that would make the core misbehave.
func (c Config) Validate() error {
	if c.Submodule.Fanout < 0 {
		return fmt.Errorf("config: submodule.fanout must not be negative, got %d", c.Submodule.Fanout)
	}
	if c.Submodule.TreeCacheSize < 0 {
		return fmt.Errorf("config: submodule.tree_cache_size must not be negative, got %d", c.Submodule.TreeCacheSize)
	}
	return nil
}
