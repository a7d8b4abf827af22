// Package config loads game tuning and server settings from YAML with
// environment overrides. The result is materialized into game.Rules once at
// startup and passed down; nothing here is global.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/brood/internal/deal"
	"github.com/talgya/brood/internal/evolution"
	"github.com/talgya/brood/internal/game"
	"github.com/talgya/brood/internal/ladder"
)

type Config struct {
	Game      GameConfig             `yaml:"game" json:"game"`
	Recipes   []game.Recipe          `yaml:"recipes" json:"recipes"`
	Ladder    ladder.Options         `yaml:"ladder" json:"ladder"`
	Odds      map[string]deal.Ratios `yaml:"odds" json:"odds"`
	Evolution []evolution.Node       `yaml:"evolution" json:"evolution"`
	Traits    []evolution.Trait      `yaml:"traits" json:"traits"`
	Server    ServerConfig           `yaml:"server" json:"server"`
	Storage   StorageConfig          `yaml:"storage" json:"storage"`
	Timing    TimingConfig           `yaml:"timing" json:"timing"`
}

type GameConfig struct {
	BaseEggs      int `yaml:"base_eggs" json:"base_eggs"`
	BasePopCap    int `yaml:"base_pop_cap" json:"base_pop_cap"` // 0 = uncapped
	MilestoneStep int `yaml:"milestone_step" json:"milestone_step"`
}

type ServerConfig struct {
	Port             int      `yaml:"port" json:"port"`
	AdminKey         string   `yaml:"admin_key" json:"-"`
	CORSOrigins      []string `yaml:"cors_origins" json:"cors_origins"`
	ActionsPerMinute int      `yaml:"actions_per_minute" json:"actions_per_minute"`
}

type StorageConfig struct {
	Path string `yaml:"path" json:"path"`
}

// TimingConfig holds the delays between the last pick and the two
// follow-up reveal steps.
type TimingConfig struct {
	RevealDelayMS   int `yaml:"reveal_delay_ms" json:"reveal_delay_ms"`
	EndModalDelayMS int `yaml:"end_modal_delay_ms" json:"end_modal_delay_ms"`
}

func (t TimingConfig) RevealDelay() time.Duration {
	return time.Duration(t.RevealDelayMS) * time.Millisecond
}

func (t TimingConfig) EndModalDelay() time.Duration {
	return time.Duration(t.EndModalDelayMS) * time.Millisecond
}

// Default returns the built-in tuning.
func Default() *Config {
	return &Config{
		Game: GameConfig{
			BaseEggs:      game.DefaultBaseEggs,
			BasePopCap:    game.DefaultBasePopCap,
			MilestoneStep: evolution.DefaultMilestoneStep,
		},
		Recipes:   game.DefaultRecipes(),
		Ladder:    ladder.DefaultOptions(),
		Odds:      game.DefaultOdds(),
		Evolution: evolution.DefaultNodes(),
		Traits:    evolution.DefaultTraits(),
		Server: ServerConfig{
			Port:             8080,
			ActionsPerMinute: 240,
		},
		Storage: StorageConfig{Path: "data/brood.db"},
		Timing:  TimingConfig{RevealDelayMS: 600, EndModalDelayMS: 900},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default; lists present in the file replace the default list.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load without the file read.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero values that have no meaningful zero.
func (c *Config) ApplyDefaults() {
	if c.Game.MilestoneStep == 0 {
		c.Game.MilestoneStep = evolution.DefaultMilestoneStep
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/brood.db"
	}
	if len(c.Ladder.Labels) == 0 {
		c.Ladder.Labels = append([]string(nil), ladder.DefaultLabels...)
	}
	if c.Odds == nil {
		c.Odds = game.DefaultOdds()
	}
}

// FromEnv applies BROOD_* overrides.
func (c *Config) FromEnv() {
	if v := os.Getenv("BROOD_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("BROOD_ADMIN_KEY"); v != "" {
		c.Server.AdminKey = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}
	envInt("BROOD_PORT", &c.Server.Port)
	envInt("BROOD_REVEAL_DELAY_MS", &c.Timing.RevealDelayMS)
	envInt("BROOD_END_MODAL_DELAY_MS", &c.Timing.EndModalDelayMS)
	envInt("BROOD_POP_CAP", &c.Game.BasePopCap)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate collects every problem into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Game.BaseEggs < 0 {
		errs = append(errs, "game.base_eggs must be >= 0")
	}
	if c.Game.BasePopCap < 0 {
		errs = append(errs, "game.base_pop_cap must be >= 0")
	}
	if c.Game.MilestoneStep < 1 {
		errs = append(errs, "game.milestone_step must be >= 1")
	}
	if len(c.Recipes) == 0 {
		errs = append(errs, "recipes must not be empty")
	}
	for i, r := range c.Recipes {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("recipes[%d]: %v", i, err))
		}
		if r.Endless && i != len(c.Recipes)-1 {
			errs = append(errs, fmt.Sprintf("recipes[%d]: only the last recipe may be endless", i))
		}
	}
	if err := c.Ladder.Validate(); err != nil {
		errs = append(errs, "ladder: "+err.Error())
	}
	for key, r := range c.Odds {
		if r.Fruit < 0 || r.Barren < 0 || r.Predator < 0 {
			errs = append(errs, fmt.Sprintf("odds.%s: ratios must be >= 0", key))
		}
		if sum := r.Fruit + r.Barren + r.Predator; sum < 0.999 || sum > 1.001 {
			errs = append(errs, fmt.Sprintf("odds.%s: ratios sum to %.3f, want 1", key, sum))
		}
	}
	if _, err := evolution.NewCatalog(c.Evolution, c.Game.MilestoneStep); err != nil {
		errs = append(errs, "evolution: "+err.Error())
	}
	if _, err := evolution.NewTraitSet(c.Traits); err != nil {
		errs = append(errs, "traits: "+err.Error())
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be in 1..65535")
	}
	if c.Server.ActionsPerMinute < 0 {
		errs = append(errs, "server.actions_per_minute must be >= 0")
	}
	if c.Timing.RevealDelayMS < 0 || c.Timing.EndModalDelayMS < 0 {
		errs = append(errs, "timing delays must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n - %s", strings.Join(errs, "\n - "))
	}
	return nil
}

// Rules validates the config and builds the reducer's rules.
func (c *Config) Rules() (*game.Rules, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cat, err := evolution.NewCatalog(c.Evolution, c.Game.MilestoneStep)
	if err != nil {
		return nil, err
	}
	traits, err := evolution.NewTraitSet(c.Traits)
	if err != nil {
		return nil, err
	}
	return game.NewRules(c.Recipes, ladder.New(c.Ladder), cat, traits, c.Odds, c.Game.BaseEggs, c.Game.BasePopCap)
}
