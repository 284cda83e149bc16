package gameconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/clock"
	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChallengeTimeoutSeconds = 30
	DefaultEloKFactor              = 32

	DefaultParticipationXP = 10
	DefaultWinXP           = 25
	DefaultLossXP          = 5
	DefaultDrawXP          = 10
)

// Host seat policies.
const (
	HostSideFirst  = "first"
	HostSideSecond = "second"
	HostSideRandom = "random"
)

// Config represents the complete game catalogue.
type Config struct {
	Games []GameConfig `yaml:"games"`
}

// GameConfig is the per-game-type orchestration policy.
type GameConfig struct {
	ID                      string    `yaml:"id"`
	Kind                    game.Kind `yaml:"kind"`
	Enabled                 bool      `yaml:"enabled"`
	RequiresNegotiation     bool      `yaml:"requires_negotiation"`
	Triggers                []string  `yaml:"triggers,omitempty"` // chat commands or gift labels that start this game
	ChallengeTimeoutSeconds int       `yaml:"challenge_timeout_seconds,omitempty"`
	EloKFactor              float64   `yaml:"elo_k_factor,omitempty"`
	DefaultTimeControl      string    `yaml:"default_time_control,omitempty"` // empty means untimed
	HostSide                string    `yaml:"host_side,omitempty"`
	Rewards                 Rewards   `yaml:"rewards,omitempty"`
}

// Rewards are XP amounts granted at game end.
type Rewards struct {
	Participation int `yaml:"participation"`
	Win           int `yaml:"win"`
	Loss          int `yaml:"loss"`
	Draw          int `yaml:"draw"`
}

// DefaultRewards returns the amounts used when a game type configures none.
func DefaultRewards() Rewards {
	return Rewards{
		Participation: DefaultParticipationXP,
		Win:           DefaultWinXP,
		Loss:          DefaultLossXP,
		Draw:          DefaultDrawXP,
	}
}

// LoadConfig loads the game catalogue from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Games {
		g := &c.Games[i]
		if g.ChallengeTimeoutSeconds == 0 {
			g.ChallengeTimeoutSeconds = DefaultChallengeTimeoutSeconds
		}
		if g.EloKFactor == 0 {
			g.EloKFactor = DefaultEloKFactor
		}
		if g.HostSide == "" {
			g.HostSide = HostSideSecond
		}
		if g.Rewards == (Rewards{}) {
			g.Rewards = DefaultRewards()
		}
	}
}

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	ids := make(map[string]bool)
	triggers := make(map[string]string)

	for _, g := range c.Games {
		if g.ID == "" {
			return fmt.Errorf("game with empty ID found")
		}
		if ids[g.ID] {
			return fmt.Errorf("duplicate game ID: %s", g.ID)
		}
		ids[g.ID] = true

		if !g.Kind.Valid() {
			return fmt.Errorf("game %s has unknown kind %q", g.ID, g.Kind)
		}
		if g.ChallengeTimeoutSeconds < 0 {
			return fmt.Errorf("game %s has negative challenge timeout", g.ID)
		}
		switch g.HostSide {
		case "", HostSideFirst, HostSideSecond, HostSideRandom:
		default:
			return fmt.Errorf("game %s has unknown host_side %q", g.ID, g.HostSide)
		}
		if g.DefaultTimeControl != "" {
			if _, err := clock.ParseTimeControl(g.DefaultTimeControl); err != nil {
				return fmt.Errorf("game %s: %w", g.ID, err)
			}
		}

		for _, trigger := range g.Triggers {
			key := normalizeTrigger(trigger)
			if key == "" {
				return fmt.Errorf("game %s has an empty trigger", g.ID)
			}
			if owner, ok := triggers[key]; ok {
				return fmt.Errorf("trigger %q is claimed by both %s and %s", trigger, owner, g.ID)
			}
			triggers[key] = g.ID
		}
	}

	return nil
}

// Get returns the enabled configuration for a game type.
func (c *Config) Get(gameType string) (GameConfig, bool) {
	for _, g := range c.Games {
		if g.ID == gameType && g.Enabled {
			return g, true
		}
	}
	return GameConfig{}, false
}

// Match resolves a trigger label to the enabled game type that claims it.
func (c *Config) Match(label string) (GameConfig, bool) {
	key := normalizeTrigger(label)
	if key == "" {
		return GameConfig{}, false
	}
	for _, g := range c.Games {
		if !g.Enabled {
			continue
		}
		for _, trigger := range g.Triggers {
			if normalizeTrigger(trigger) == key {
				return g, true
			}
		}
	}
	return GameConfig{}, false
}

// ChallengeTimeout returns how long a challenge waits for an opponent.
func (g GameConfig) ChallengeTimeout() time.Duration {
	if g.ChallengeTimeoutSeconds <= 0 {
		return DefaultChallengeTimeoutSeconds * time.Second
	}
	return time.Duration(g.ChallengeTimeoutSeconds) * time.Second
}

// Timed reports whether sessions of this type run a clock by default.
func (g GameConfig) Timed() bool {
	return g.DefaultTimeControl != ""
}

// TimeControl resolves the clock settings, preferring an override when given.
func (g GameConfig) TimeControl(override string) (clock.TimeControl, bool, error) {
	raw := strings.TrimSpace(override)
	if raw == "" {
		raw = g.DefaultTimeControl
	}
	if raw == "" {
		return clock.TimeControl{}, false, nil
	}
	tc, err := clock.ParseTimeControl(raw)
	if err != nil {
		return clock.TimeControl{}, false, err
	}
	return tc, true, nil
}

func normalizeTrigger(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
