package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the reef server.
type Server struct {
	// Network (observer feed + operator endpoints)
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	LogLevel string `yaml:"log_level"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Settlement boundary (balance oracle + payout sink)
	Settlement SettlementConfig `yaml:"settlement"`

	// World boss tuning
	Bosses []BossConfig `yaml:"bosses"`

	// Reward pool split
	PoolSplit PoolSplitConfig `yaml:"pool_split"`

	// Progression rates and limits
	Progression ProgressionConfig `yaml:"progression"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// SettlementConfig holds the external settlement boundary endpoint
// and retry policy for balance and payout calls.
type SettlementConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`     // per-call deadline
	MaxRetries uint64        `yaml:"max_retries"` // transient failures before parking
}

// BossConfig holds per-kind world boss tuning.
// Ticks are one second each; spawn scheduling survives restarts because
// ticks are derived from wall-clock Unix seconds.
type BossConfig struct {
	Kind              string `yaml:"kind"`
	MaxHP             int64  `yaml:"max_hp"`
	DamageCap         int64  `yaml:"damage_cap"` // per-participant cumulative cap
	WarningDelayTicks int64  `yaml:"warning_delay_ticks"`
	CooldownMinTicks  int64  `yaml:"cooldown_min_ticks"`
	CooldownMaxTicks  int64  `yaml:"cooldown_max_ticks"`
}

// PoolSplitConfig controls how the reward pool is divided between the
// equal share and the damage-weighted share. Fractions must sum to 1.
type PoolSplitConfig struct {
	Equal  float64 `yaml:"equal"`
	Damage float64 `yaml:"damage"`
}

// ProgressionConfig holds XP rates and anti-abuse limits.
type ProgressionConfig struct {
	// FactionRates maps faction name to XP multiplier. Unlisted factions
	// earn x1.
	FactionRates map[string]float64 `yaml:"faction_rates"`
	// ActionXPHourlyCap bounds action XP (move, broadcast) per agent per
	// rolling hour. Zero disables action XP entirely.
	ActionXPHourlyCap int64 `yaml:"action_xp_hourly_cap"`
	// SlotBonusInterval grants one inventory slot every N levels.
	SlotBonusInterval int32 `yaml:"slot_bonus_interval"`
}

// Default returns Server config with sensible defaults.
func Default() Server {
	return Server{
		BindAddress: "0.0.0.0",
		Port:        8089,
		LogLevel:    "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "reef",
			Password: "reef",
			DBName:   "reef",
			SSLMode:  "disable",
		},
		Settlement: SettlementConfig{
			Endpoint:   "http://127.0.0.1:9090",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Bosses: []BossConfig{
			{
				Kind:              "the_leviathan",
				MaxHP:             10000,
				DamageCap:         2500,
				WarningDelayTicks: 300,
				CooldownMinTicks:  43200,
				CooldownMaxTicks:  86400,
			},
			{
				Kind:              "kraken_of_the_deep",
				MaxHP:             5000,
				DamageCap:         1500,
				WarningDelayTicks: 180,
				CooldownMinTicks:  21600,
				CooldownMaxTicks:  43200,
			},
			{
				Kind:              "tide_titan",
				MaxHP:             2500,
				DamageCap:         800,
				WarningDelayTicks: 120,
				CooldownMinTicks:  10800,
				CooldownMaxTicks:  21600,
			},
		},
		PoolSplit: PoolSplitConfig{
			Equal:  0.6,
			Damage: 0.4,
		},
		Progression: ProgressionConfig{
			FactionRates: map[string]float64{
				"drift":   1.0,
				"current": 1.1,
				"abyss":   1.25,
			},
			ActionXPHourlyCap: 500,
			SlotBonusInterval: 5,
		},
	}
}

// Load loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks internal consistency of the loaded config.
func (c Server) Validate() error {
	if c.PoolSplit.Equal < 0 || c.PoolSplit.Damage < 0 {
		return fmt.Errorf("pool split fractions must be non-negative")
	}
	if sum := c.PoolSplit.Equal + c.PoolSplit.Damage; sum > 1.0001 || sum < 0.9999 {
		return fmt.Errorf("pool split fractions must sum to 1, got %.4f", sum)
	}
	for _, b := range c.Bosses {
		if b.MaxHP <= 0 {
			return fmt.Errorf("boss %q: max_hp must be positive", b.Kind)
		}
		if b.DamageCap <= 0 {
			return fmt.Errorf("boss %q: damage_cap must be positive", b.Kind)
		}
		if b.CooldownMaxTicks < b.CooldownMinTicks {
			return fmt.Errorf("boss %q: cooldown_max_ticks < cooldown_min_ticks", b.Kind)
		}
	}
	return nil
}
