// Package config holds the process-wide lifesteal configuration.
//
// Configuration is read from a YAML file, checked against an embedded CUE
// schema and published through a Provider. Consumers call Provider.Current on
// every operation instead of caching values, so a reload takes effect
// mid-session.
package config

import (
	"strings"
	"time"
)

// Config is one immutable snapshot of the configuration.
//
// The yaml tags describe the file layout; the json tags are the field names
// the CUE schema validates against.
type Config struct {
	Resource     ResourceConfig    `yaml:"resource" json:"resource"`
	Elimination  EliminationConfig `yaml:"elimination" json:"elimination"`
	Withdraw     WithdrawConfig    `yaml:"withdraw" json:"withdraw"`
	Items        ItemsConfig       `yaml:"items" json:"items"`
	EnabledZones []string          `yaml:"enabled_zones" json:"enabled_zones"`
	Debug        bool              `yaml:"debug" json:"debug"`
}

// ResourceConfig holds the bounds, in half-units.
type ResourceConfig struct {
	Default  int `yaml:"default" json:"default_level"`
	Min      int `yaml:"min" json:"min_bound"`
	Max      int `yaml:"max" json:"max_bound"`
	PerEvent int `yaml:"per_event" json:"per_event"`
}

// EliminationConfig controls what happens when a participant hits zero.
type EliminationConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Ban      bool          `yaml:"ban" json:"ban"`
	Commands []string      `yaml:"commands" json:"commands"`
	Delay    time.Duration `yaml:"delay" json:"delay"`
	Message  string        `yaml:"message" json:"message"`
}

// WithdrawConfig controls converting resource into item tokens.
type WithdrawConfig struct {
	Enabled         bool `yaml:"enabled" json:"enabled"`
	CooldownSeconds int  `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	Amount          int  `yaml:"amount" json:"amount"`
}

// ItemsConfig controls consumable resource items.
type ItemsConfig struct {
	Enabled         bool     `yaml:"enabled" json:"enabled"`
	Value           int      `yaml:"value" json:"value"`
	CraftingPattern []string `yaml:"crafting_pattern" json:"crafting_pattern"`
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		Resource: defaultResource(),
		Elimination: EliminationConfig{
			Enabled:  true,
			Ban:      false,
			Commands: []string{},
			Delay:    time.Second,
			Message:  "{player} has been eliminated!",
		},
		Withdraw: WithdrawConfig{
			Enabled:         true,
			CooldownSeconds: 300,
			Amount:          2,
		},
		Items: ItemsConfig{
			Enabled:         true,
			Value:           2,
			CraftingPattern: []string{"GDG", "DHD", "GDG"},
		},
		EnabledZones: []string{},
	}
}

func defaultResource() ResourceConfig {
	return ResourceConfig{Default: 20, Min: 2, Max: 40, PerEvent: 2}
}

// Clamp bounds v to [Min, Max].
func (c Config) Clamp(v int) int {
	if v < c.Resource.Min {
		return c.Resource.Min
	}
	if v > c.Resource.Max {
		return c.Resource.Max
	}
	return v
}

// LifestealEnabledIn reports whether transfers apply in zone.
// An empty zone list enables every zone.
func (c Config) LifestealEnabledIn(zone string) bool {
	if len(c.EnabledZones) == 0 {
		return true
	}
	for _, z := range c.EnabledZones {
		if z == zone {
			return true
		}
	}
	return false
}

// CooldownWindow returns the withdraw cooldown as a duration.
func (c Config) CooldownWindow() time.Duration {
	return time.Duration(c.Withdraw.CooldownSeconds) * time.Second
}

// EliminationMessage renders the broadcast for player.
func (c Config) EliminationMessage(player string) string {
	return strings.ReplaceAll(c.Elimination.Message, "{player}", player)
}

// EliminationCommands renders the follow-up commands for player, with the
// ban command appended when banning is enabled.
func (c Config) EliminationCommands(player string) []string {
	cmds := make([]string, 0, len(c.Elimination.Commands)+1)
	for _, cmd := range c.Elimination.Commands {
		cmds = append(cmds, strings.ReplaceAll(cmd, "{player}", player))
	}
	if c.Elimination.Ban {
		cmds = append(cmds, "ban "+player+" You have been eliminated from the lifesteal server!")
	}
	return cmds
}
