package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"
	defaultAppLogPath  = "/data/logs/aurum.log"

	defaultTradeDBPath   = "/data/db/aurum.db"
	defaultControlDBPath = "/data/db/control.db"

	defaultTDBaseURL      = "https://api.twelvedata.com"
	defaultTDSymbol       = "XAU/USD"
	defaultTDInterval     = "1min"
	defaultTDDailyLimit   = 800
	defaultTDTimeout      = 15
	defaultTDDollarSymbol = "DXY"
	defaultTDYieldSymbol  = "US10Y"
	defaultTDEquitySymbol = "SPX"
	defaultTDFearSymbol   = "VIX"

	defaultBinanceREST     = "https://api.binance.com"
	defaultBinanceSymbol   = "PAXGUSDT"
	defaultBinanceInterval = "1m"
	defaultBinanceTimeout  = 15

	defaultSignalMinutes   = 30
	defaultVerifyMinutes   = 5
	defaultHistoryBars     = 100
	defaultMaxTradesPerDay = 30
	defaultLossCooldown    = 3

	defaultRiskMode          = "SAFER"
	defaultRiskPerTrade      = 0.01
	defaultStrictRisk        = 0.20
	defaultRewardMultiple    = 2.0
	defaultATRPeriod         = 14
	defaultATRMultiplier     = 1.5
	defaultPipSize           = 0.01
	defaultPipValuePerLot    = 1.0
	defaultLotStep           = 0.01
	defaultMinLot            = 0.01
	defaultMaxLot            = 50.0
	defaultAssumedSpread     = 0.05
	defaultVerifyWindowBars  = 120
	defaultInitialBalance    = 100.0
	defaultLevelMode         = "STRICT"
	defaultNewsWindowMinutes = 30
	defaultMacroTTLMinutes   = 1
	defaultProfilesPath      = "configs/profiles.yaml"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Database.applyDefaults(keys)
	c.TwelveData.applyDefaults(keys)
	c.Binance.applyDefaults(keys)
	c.Agent.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Verify.applyDefaults(keys)
	c.Level.applyDefaults(keys)
	c.News.applyDefaults(keys)
	c.Macro.applyDefaults(keys)
	c.Profiles.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (d *DatabaseConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("database.trade_path", &d.TradePath, defaultTradeDBPath),
		stringFieldDefault("database.control_path", &d.ControlPath, defaultControlDBPath),
	)
}

func (t *TwelveDataConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("twelvedata.base_url", &t.BaseURL, defaultTDBaseURL),
		stringFieldDefault("twelvedata.symbol", &t.Symbol, defaultTDSymbol),
		stringFieldDefault("twelvedata.interval", &t.Interval, defaultTDInterval),
		intFieldDefault("twelvedata.daily_limit", &t.DailyLimit, defaultTDDailyLimit),
		intFieldDefault("twelvedata.timeout_seconds", &t.TimeoutSeconds, defaultTDTimeout),
		stringFieldDefault("twelvedata.dollar_symbol", &t.DollarSymbol, defaultTDDollarSymbol),
		stringFieldDefault("twelvedata.yield_symbol", &t.YieldSymbol, defaultTDYieldSymbol),
		stringFieldDefault("twelvedata.equity_symbol", &t.EquitySymbol, defaultTDEquitySymbol),
		stringFieldDefault("twelvedata.fear_symbol", &t.FearSymbol, defaultTDFearSymbol),
	)
}

func (b *BinanceConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("binance.rest_base_url", &b.RESTBaseURL, defaultBinanceREST),
		stringFieldDefault("binance.symbol", &b.Symbol, defaultBinanceSymbol),
		stringFieldDefault("binance.interval", &b.Interval, defaultBinanceInterval),
		intFieldDefault("binance.timeout_seconds", &b.TimeoutSeconds, defaultBinanceTimeout),
	)
}

func (a *AgentConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("agent.signal_interval_minutes", &a.SignalIntervalMinutes, defaultSignalMinutes),
		intFieldDefault("agent.verify_interval_minutes", &a.VerifyIntervalMinutes, defaultVerifyMinutes),
		intFieldDefault("agent.history_bars", &a.HistoryBars, defaultHistoryBars),
		intFieldDefault("agent.max_trades_per_day", &a.MaxTradesPerDay, defaultMaxTradesPerDay),
		intFieldDefault("agent.loss_cooldown", &a.LossCooldown, defaultLossCooldown),
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("risk.mode", &r.Mode, defaultRiskMode),
		floatFieldDefault("risk.risk_per_trade", &r.RiskPerTrade, defaultRiskPerTrade),
		floatFieldDefault("risk.strict_risk", &r.StrictRisk, defaultStrictRisk),
		floatFieldDefault("risk.reward_multiple", &r.RewardMultiple, defaultRewardMultiple),
		intFieldDefault("risk.atr_period", &r.ATRPeriod, defaultATRPeriod),
		floatFieldDefault("risk.atr_multiplier", &r.ATRMultiplier, defaultATRMultiplier),
		floatFieldDefault("risk.pip_size", &r.PipSize, defaultPipSize),
		floatFieldDefault("risk.pip_value_per_lot", &r.PipValuePerLot, defaultPipValuePerLot),
		floatFieldDefault("risk.lot_step", &r.LotStep, defaultLotStep),
		floatFieldDefault("risk.min_lot", &r.MinLot, defaultMinLot),
		floatFieldDefault("risk.max_lot", &r.MaxLot, defaultMaxLot),
		floatFieldDefault("risk.assumed_spread", &r.AssumedSpread, defaultAssumedSpread),
	)
}

func (v *VerifyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("verify.window_bars", &v.WindowBars, defaultVerifyWindowBars),
	)
}

func (l *LevelConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("level.initial_balance", &l.InitialBalance, defaultInitialBalance),
		stringFieldDefault("level.mode", &l.Mode, defaultLevelMode),
	)
}

func (n *NewsConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("news.window_minutes", &n.WindowMinutes, defaultNewsWindowMinutes),
	)
}

func (m *MacroConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("macro.ttl_minutes", &m.TTLMinutes, defaultMacroTTLMinutes),
	)
}

func (p *ProfilesConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("profiles.path", &p.Path, defaultProfilesPath),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}
