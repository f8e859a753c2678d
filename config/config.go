package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Account    AccountConfig  `json:"account" yaml:"account"`
	Instrument string         `json:"instrument" yaml:"instrument"`
	Engine     EngineConfig   `json:"engine" yaml:"engine"`
	Strategy   StrategyConfig `json:"strategy" yaml:"strategy"`
	Backtest   BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal    JournalConfig  `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// EngineConfig holds the position engine settings. Percentages are
// fractions (0.02 == 2%).
type EngineConfig struct {
	PositionSize      float64 `json:"position_size" yaml:"position_size"`
	MaxRiskPct        float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	PartialExitR      float64 `json:"partial_exit_r" yaml:"partial_exit_r"`
	PartialExitPct    float64 `json:"partial_exit_pct" yaml:"partial_exit_pct"`
	BreakevenR        float64 `json:"breakeven_r" yaml:"breakeven_r"`
	DailyLossLimitPct float64 `json:"daily_loss_limit_pct" yaml:"daily_loss_limit_pct"`
	MaxOpenPositions  int     `json:"max_open_positions" yaml:"max_open_positions"`
	Timezone          string  `json:"timezone,omitempty" yaml:"timezone,omitempty"` // IANA name, default UTC
}

// StrategyConfig selects a strategy and its parameters
type StrategyConfig struct {
	Name string `json:"name" yaml:"name"`

	// open-once
	Side       string  `json:"side,omitempty" yaml:"side,omitempty"` // "long" or "short"
	StopDist   float64 `json:"stop_dist,omitempty" yaml:"stop_dist,omitempty"`
	TargetDist float64 `json:"target_dist,omitempty" yaml:"target_dist,omitempty"`

	// ema-cross
	Fast      int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow      int     `json:"slow,omitempty" yaml:"slow,omitempty"`
	ADXPeriod int     `json:"adx_period,omitempty" yaml:"adx_period,omitempty"`
	MinADX    float64 `json:"min_adx,omitempty" yaml:"min_adx,omitempty"`

	// band-reversion
	BandPeriod    int     `json:"band_period,omitempty" yaml:"band_period,omitempty"`
	BandStdDev    float64 `json:"band_stddev,omitempty" yaml:"band_stddev,omitempty"`
	RSIPeriod     int     `json:"rsi_period,omitempty" yaml:"rsi_period,omitempty"`
	RSIOversold   float64 `json:"rsi_oversold,omitempty" yaml:"rsi_oversold,omitempty"`
	RSIOverbought float64 `json:"rsi_overbought,omitempty" yaml:"rsi_overbought,omitempty"`

	ATRPeriod int     `json:"atr_period,omitempty" yaml:"atr_period,omitempty"`
	StopATR   float64 `json:"stop_atr,omitempty" yaml:"stop_atr,omitempty"`
	RR        float64 `json:"rr,omitempty" yaml:"rr,omitempty"`
}

// BacktestConfig contains data selection and run options
type BacktestConfig struct {
	CandlesFile  string `json:"candles_file" yaml:"candles_file"`
	From         string `json:"from,omitempty" yaml:"from,omitempty"` // RFC3339 or YYYY-MM-DD, inclusive
	To           string `json:"to,omitempty" yaml:"to,omitempty"`     // exclusive
	CloseEnd     bool   `json:"close_end" yaml:"close_end"`
	SessionClose string `json:"session_close,omitempty" yaml:"session_close,omitempty"` // HH:MM
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// YAML renders the configuration for storing alongside a run.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return errors.New("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return errors.New("account.balance must be positive")
	}
	if c.Instrument == "" {
		return errors.New("instrument is required")
	}
	if _, err := market.Lookup(c.Instrument); err != nil {
		return err
	}

	ec, err := c.EngineConfig()
	if err != nil {
		return err
	}
	if err := ec.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	params, err := c.Strategy.Params()
	if err != nil {
		return err
	}
	if _, err := strategies.ByName(c.Strategy.Name, params); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if _, _, err := c.Backtest.Range(); err != nil {
		return err
	}
	if s := c.Backtest.SessionClose; s != "" {
		if _, err := time.Parse("15:04", s); err != nil {
			return fmt.Errorf("backtest.session_close %q must be HH:MM", s)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return errors.New("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return errors.New("journal db_path required for SQLite type")
		}
	default:
		return errors.New("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Profile looks up the configured instrument.
func (c *Config) Profile() (market.Profile, error) {
	return market.Lookup(c.Instrument)
}

// EngineConfig converts the engine and account sections into a sim.Config.
func (c *Config) EngineConfig() (sim.Config, error) {
	loc := time.UTC
	if tz := c.Engine.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return sim.Config{}, fmt.Errorf("engine.timezone: %w", err)
		}
		loc = l
	}

	return sim.Config{
		StartingBalance:   c.Account.Balance,
		PositionSize:      c.Engine.PositionSize,
		MaxRiskPct:        c.Engine.MaxRiskPct,
		DailyLossLimitPct: c.Engine.DailyLossLimitPct,
		MaxOpenPositions:  c.Engine.MaxOpenPositions,
		PartialExitR:      c.Engine.PartialExitR,
		PartialExitPct:    c.Engine.PartialExitPct,
		BreakevenR:        c.Engine.BreakevenR,
		Location:          loc,
	}, nil
}

// Params converts the strategy section, filling unset fields from
// strategies.DefaultParams.
func (s StrategyConfig) Params() (strategies.Params, error) {
	p := strategies.DefaultParams()

	switch strings.ToLower(s.Side) {
	case "", "long", "buy":
		p.Side = sim.Long
	case "short", "sell":
		p.Side = sim.Short
	default:
		return p, fmt.Errorf("strategy.side must be 'long' or 'short', got %q", s.Side)
	}

	setF := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setI := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}

	setF(&p.StopDist, s.StopDist)
	setF(&p.TargetDist, s.TargetDist)
	setI(&p.Fast, s.Fast)
	setI(&p.Slow, s.Slow)
	setI(&p.ADXPeriod, s.ADXPeriod)
	setF(&p.MinADX, s.MinADX)
	setI(&p.BandPeriod, s.BandPeriod)
	setF(&p.BandStdDev, s.BandStdDev)
	setI(&p.RSIPeriod, s.RSIPeriod)
	setF(&p.RSIOversold, s.RSIOversold)
	setF(&p.RSIOverbought, s.RSIOverbought)
	setI(&p.ATRPeriod, s.ATRPeriod)
	setF(&p.StopATR, s.StopATR)
	setF(&p.RR, s.RR)

	return p, nil
}

// Range parses From and To. Unset bounds are zero times.
func (b BacktestConfig) Range() (from, to time.Time, err error) {
	if from, err = parseTime(b.From); err != nil {
		return from, to, fmt.Errorf("backtest.from: %w", err)
	}
	if to, err = parseTime(b.To); err != nil {
		return from, to, fmt.Errorf("backtest.to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, errors.New("backtest.from must be before backtest.to")
	}
	return from, to, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

// OpenJournal opens the configured journal. "none" discards.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "", "none":
		return journal.Discard, nil
	case "csv":
		j, err := journal.NewCSV(c.Journal.TradesFile, c.Journal.EquityFile)
		if err != nil {
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(c.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	ec := sim.DefaultConfig()
	p := strategies.DefaultParams()

	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  100000,
		},
		Instrument: "EUR_USD",
		Engine: EngineConfig{
			PositionSize:      ec.PositionSize,
			MaxRiskPct:        ec.MaxRiskPct,
			PartialExitR:      ec.PartialExitR,
			PartialExitPct:    ec.PartialExitPct,
			BreakevenR:        ec.BreakevenR,
			DailyLossLimitPct: ec.DailyLossLimitPct,
			MaxOpenPositions:  ec.MaxOpenPositions,
			Timezone:          "UTC",
		},
		Strategy: StrategyConfig{
			Name:      "ema-cross",
			Fast:      p.Fast,
			Slow:      p.Slow,
			ATRPeriod: p.ATRPeriod,
			StopATR:   p.StopATR,
			RR:        p.RR,
		},
		Backtest: BacktestConfig{
			CandlesFile: "./data/EUR_USD_H1.csv",
			CloseEnd:    true,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./barsim.db",
		},
	}
}
