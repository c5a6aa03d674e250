// Package config loads the bot configuration from YAML with optional
// include files, applies defaults for unset keys and validates the result.
package config

import "strings"

// Config is the top-level configuration for the bot.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	TwelveData TwelveDataConfig `yaml:"twelvedata"`
	Binance    BinanceConfig    `yaml:"binance"`
	Agent      AgentConfig      `yaml:"agent"`
	Risk       RiskConfig       `yaml:"risk"`
	Verify     VerifyConfig     `yaml:"verify"`
	Level      LevelConfig      `yaml:"level"`
	News       NewsConfig       `yaml:"news"`
	Macro      MacroConfig      `yaml:"macro"`
	Profiles   ProfilesConfig   `yaml:"profiles"`
	Notify     NotifyConfig     `yaml:"notify"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	LogPath  string `yaml:"log_path"`
}

type DatabaseConfig struct {
	TradePath   string `yaml:"trade_path"`
	ControlPath string `yaml:"control_path"`
}

type TwelveDataConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Symbol         string `yaml:"symbol"`
	Interval       string `yaml:"interval"`
	DailyLimit     int    `yaml:"daily_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	DollarSymbol   string `yaml:"dollar_symbol"`
	YieldSymbol    string `yaml:"yield_symbol"`
	EquitySymbol   string `yaml:"equity_symbol"`
	FearSymbol     string `yaml:"fear_symbol"`
}

// BinanceConfig describes the PAXG fallback bar source.
type BinanceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	RESTBaseURL    string `yaml:"rest_base_url"`
	Symbol         string `yaml:"symbol"`
	Interval       string `yaml:"interval"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AgentConfig struct {
	SignalIntervalMinutes int `yaml:"signal_interval_minutes"`
	VerifyIntervalMinutes int `yaml:"verify_interval_minutes"`
	HistoryBars           int `yaml:"history_bars"`
	MaxTradesPerDay       int `yaml:"max_trades_per_day"`
	LossCooldown          int `yaml:"loss_cooldown"`
}

type RiskConfig struct {
	Mode           string  `yaml:"mode"`
	RiskPerTrade   float64 `yaml:"risk_per_trade"`
	StrictRisk     float64 `yaml:"strict_risk"`
	RewardMultiple float64 `yaml:"reward_multiple"`
	ATRPeriod      int     `yaml:"atr_period"`
	ATRMultiplier  float64 `yaml:"atr_multiplier"`
	PipSize        float64 `yaml:"pip_size"`
	PipValuePerLot float64 `yaml:"pip_value_per_lot"`
	LotStep        float64 `yaml:"lot_step"`
	MinLot         float64 `yaml:"min_lot"`
	MaxLot         float64 `yaml:"max_lot"`
	AssumedSpread  float64 `yaml:"assumed_spread"`
}

type VerifyConfig struct {
	WindowBars int `yaml:"window_bars"`
}

type LevelConfig struct {
	InitialBalance float64 `yaml:"initial_balance"`
	Mode           string  `yaml:"mode"`
}

type NewsConfig struct {
	Events        []string `yaml:"events"`
	WindowMinutes int      `yaml:"window_minutes"`
}

type MacroConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

type ProfilesConfig struct {
	Path string `yaml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// keySet tracks which config paths were explicitly set in the files, so
// defaults never clobber an intentional zero value.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault is one defaulting rule: applied only when the key is unset
// in the files and the current value still needs it.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
