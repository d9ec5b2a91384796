// Package config loads and validates stitchboard.yml, the per-workspace
// configuration: backing store address, workspace name, the identity this
// session acts as, and the prefetched directory of identities and assets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/threadline/stitchboard/internal/directory"
	"github.com/threadline/stitchboard/pkg/board"
)

// DefaultPath is where commands look for the config when no flag is given.
const DefaultPath = "stitchboard.yml"

// Config represents the top-level stitchboard.yml configuration.
type Config struct {
	Version   string          `yaml:"version"`
	Workspace string          `yaml:"workspace"`
	Identity  string          `yaml:"identity"`
	Redis     RedisConfig     `yaml:"redis,omitempty"`
	People    []IdentityEntry `yaml:"people"`
	Assets    []AssetEntry    `yaml:"assets,omitempty"`
}

// RedisConfig holds backing store connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// IdentityEntry is one known identity in the workspace directory.
type IdentityEntry struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	AvatarURL   string `yaml:"avatar_url,omitempty"`
}

// AssetEntry is one known inventory asset in the workspace directory.
type AssetEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate performs strict validation on the configuration and applies
// defaults.
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1" {
		return fmt.Errorf("unsupported version: %s (expected: 1)", c.Version)
	}

	// Required: workspace
	if c.Workspace == "" {
		return fmt.Errorf("workspace is required")
	}

	// Required: identity, and it must be a known person
	if c.Identity == "" {
		return fmt.Errorf("identity is required")
	}

	if len(c.People) == 0 {
		return fmt.Errorf("no people defined")
	}

	seen := make(map[string]bool, len(c.People))
	for i, p := range c.People {
		if p.ID == "" {
			return fmt.Errorf("people[%d]: id is required", i)
		}
		if p.DisplayName == "" {
			return fmt.Errorf("person '%s': display_name is required", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate person id '%s'", p.ID)
		}
		seen[p.ID] = true
	}

	if !seen[c.Identity] {
		return fmt.Errorf("identity '%s' is not in the people list", c.Identity)
	}

	assetsSeen := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		if a.Code == "" {
			return fmt.Errorf("assets[%d]: code is required", i)
		}
		if assetsSeen[a.Code] {
			return fmt.Errorf("duplicate asset code '%s'", a.Code)
		}
		assetsSeen[a.Code] = true
	}

	// Default: local Redis
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	return nil
}

// Directory builds the prefetched identity/asset directory from the config.
func (c *Config) Directory() *directory.Directory {
	identities := make([]board.Identity, 0, len(c.People))
	for _, p := range c.People {
		identities = append(identities, board.Identity{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
		})
	}

	assets := make([]board.Asset, 0, len(c.Assets))
	for _, a := range c.Assets {
		assets = append(assets, board.Asset{Code: a.Code, Name: a.Name})
	}

	return directory.New(identities, assets)
}
