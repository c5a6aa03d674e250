package app

import (
	"context"
	"fmt"
	"time"

	"aurum/internal/agent"
	"aurum/internal/analysis/visual"
	aucfg "aurum/internal/config"
	"aurum/internal/gateway/binance"
	"aurum/internal/gateway/compose"
	"aurum/internal/gateway/notifier"
	"aurum/internal/gateway/twelvedata"
	"aurum/internal/grading"
	"aurum/internal/logger"
	"aurum/internal/macro"
	"aurum/internal/market"
	"aurum/internal/news"
	"aurum/internal/plan"
	"aurum/internal/profile"
	"aurum/internal/store/control"
	"aurum/internal/store/gormstore"
	apihttp "aurum/internal/transport/http/api"
	"aurum/internal/verify"
)

// AppBuilder assembles the application. The function fields exist so
// tests can substitute sources without real network or browser access.
type AppBuilder struct {
	cfg *aucfg.Config

	barStackFn func(*aucfg.Config) (market.BarSource, market.MacroSource, error)
	notifierFn func(aucfg.TelegramConfig) notifier.TextNotifier
	serverFn   func(aucfg.AppConfig, apihttp.Store, apihttp.ControlStore, apihttp.BarProvider) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *aucfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		barStackFn: buildBarStack,
		notifierFn: buildNotifier,
		serverFn:   buildAPIServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithBarStack overrides the market data sources, for tests.
func WithBarStack(fn func(*aucfg.Config) (market.BarSource, market.MacroSource, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.barStackFn = fn }
}

// Build constructs every component and returns the runnable App.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	store, err := gormstore.NewStore(cfg.Database.TradePath, cfg.Level.InitialBalance, grading.LevelMode(cfg.Level.Mode))
	if err != nil {
		return nil, fmt.Errorf("opening trade store: %w", err)
	}
	ctl, err := control.Open(cfg.Database.ControlPath)
	if err != nil {
		return nil, fmt.Errorf("opening control store: %w", err)
	}

	bars, macroSource, err := b.barStackFn(cfg)
	if err != nil {
		return nil, err
	}
	macroSvc := macro.NewService(macroSource, time.Duration(cfg.Macro.TTLMinutes)*time.Minute)

	profiles, err := profile.NewRegistry(cfg.Profiles.Path)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	guard, err := news.NewGuard(cfg.News.Events, cfg.News.WindowMinutes)
	if err != nil {
		return nil, err
	}

	verifier := verify.New(bars, cfg.Verify.WindowBars, cfg.Risk.RewardMultiple)
	notify := b.notifierFn(cfg.Notify.Telegram)

	engine, err := agent.New(agent.Config{
		Symbol:          cfg.TwelveData.Symbol,
		SignalInterval:  time.Duration(cfg.Agent.SignalIntervalMinutes) * time.Minute,
		VerifyInterval:  time.Duration(cfg.Agent.VerifyIntervalMinutes) * time.Minute,
		HistoryBars:     cfg.Agent.HistoryBars,
		MaxTradesPerDay: cfg.Agent.MaxTradesPerDay,
		LossCooldown:    cfg.Agent.LossCooldown,
	}, bars, macroSvc, profiles, riskConfig(cfg.Risk), verifier, store, ctl, guard, notify)
	if err != nil {
		return nil, err
	}
	if cfg.Notify.Telegram.Enabled {
		engine.WithCharts(chartRenderer{})
	}

	server, err := b.serverFn(cfg.App, store, ctl, bars)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		engine:  engine,
		server:  server,
		store:   store,
		control: ctl,
	}, nil
}

func buildBarStack(cfg *aucfg.Config) (market.BarSource, market.MacroSource, error) {
	td, err := twelvedata.New(twelvedata.Config{
		APIKey:       cfg.TwelveData.APIKey,
		BaseURL:      cfg.TwelveData.BaseURL,
		Symbol:       cfg.TwelveData.Symbol,
		Interval:     cfg.TwelveData.Interval,
		HTTPTimeout:  time.Duration(cfg.TwelveData.TimeoutSeconds) * time.Second,
		DailyLimit:   cfg.TwelveData.DailyLimit,
		DollarSymbol: cfg.TwelveData.DollarSymbol,
		YieldSymbol:  cfg.TwelveData.YieldSymbol,
		EquitySymbol: cfg.TwelveData.EquitySymbol,
		FearSymbol:   cfg.TwelveData.FearSymbol,
	})
	if err != nil {
		return nil, nil, err
	}

	sources := []market.BarSource{td}
	if cfg.Binance.Enabled {
		sources = append(sources, binance.New(binance.Config{
			RESTBaseURL: cfg.Binance.RESTBaseURL,
			Symbol:      cfg.Binance.Symbol,
			Interval:    cfg.Binance.Interval,
			HTTPTimeout: time.Duration(cfg.Binance.TimeoutSeconds) * time.Second,
		}))
		logger.Infof("bar source: %s with %s fallback", cfg.TwelveData.Symbol, cfg.Binance.Symbol)
	}
	bars, err := compose.New(sources...)
	if err != nil {
		return nil, nil, err
	}
	return bars, td, nil
}

// chartRenderer adapts the visual package to the engine's optional hook.
type chartRenderer struct{}

func (chartRenderer) RenderTradeChart(ctx context.Context, symbol string, candles []market.Candle, p *plan.TradePlan) (visual.ImageResult, error) {
	return visual.RenderTradeChart(ctx, symbol, candles, p)
}

func buildNotifier(cfg aucfg.TelegramConfig) notifier.TextNotifier {
	if !cfg.Enabled {
		return notifier.Noop{}
	}
	return notifier.NewTelegram(cfg.BotToken, cfg.ChatID)
}

func buildAPIServer(cfg aucfg.AppConfig, store apihttp.Store, ctl apihttp.ControlStore, bars apihttp.BarProvider) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{
		Addr:    cfg.HTTPAddr,
		Store:   store,
		Control: ctl,
		Bars:    bars,
	})
}

func riskConfig(r aucfg.RiskConfig) plan.RiskConfig {
	return plan.RiskConfig{
		Mode:           plan.RiskMode(r.Mode),
		RiskPerTrade:   r.RiskPerTrade,
		StrictRisk:     r.StrictRisk,
		RewardMultiple: r.RewardMultiple,
		ATRPeriod:      r.ATRPeriod,
		ATRMultiplier:  r.ATRMultiplier,
		PipSize:        r.PipSize,
		PipValuePerLot: r.PipValuePerLot,
		LotStep:        r.LotStep,
		MinLot:         r.MinLot,
		MaxLot:         r.MaxLot,
		AssumedSpread:  r.AssumedSpread,
	}
}
