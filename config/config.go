package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// CurveVariant selects the price curve a deployment runs on.
const (
	VariantStatic    = "static"
	VariantEphemeral = "ephemeral"
)

// Config is the top-level daemon configuration.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	LogEnv         string `toml:"LogEnv"`
	LogFile        string `toml:"LogFile"`

	Engine Engine `toml:"Engine"`
}

// Engine configures the pricing engine and its collaborators.
type Engine struct {
	Variant          string   `toml:"Variant"`
	FeeBps           uint32   `toml:"FeeBps"`
	Authority        string   `toml:"Authority"`
	Collector        string   `toml:"Collector"`
	AdapterAddress   string   `toml:"AdapterAddress"`
	SettlementEngine string   `toml:"SettlementEngine"`
	Schedule         Schedule `toml:"Schedule"`
}

// Schedule carries the four ephemeral deadlines as unix seconds.
type Schedule struct {
	ConfirmationOpen     int64 `toml:"ConfirmationOpen"`
	ConfirmationDeadline int64 `toml:"ConfirmationDeadline"`
	AuctionDeadline      int64 `toml:"AuctionDeadline"`
	FinalDeadline        int64 `toml:"FinalDeadline"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8545"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9464"
	}
	if strings.TrimSpace(cfg.Engine.Variant) == "" {
		cfg.Engine.Variant = VariantStatic
	}
	return cfg, nil
}
