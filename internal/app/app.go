// Package app wires configuration into the running bot: the signal and
// verify loops, the HTTP API and the notification channel.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"aurum/internal/agent"
	aucfg "aurum/internal/config"
	"aurum/internal/logger"
	"aurum/internal/scheduler"
	"aurum/internal/store/control"
	"aurum/internal/store/gormstore"
	apihttp "aurum/internal/transport/http/api"
)

// App owns the assembled services and runs them until the context ends.
type App struct {
	cfg     *aucfg.Config
	engine  *agent.Engine
	server  *apihttp.Server
	store   *gormstore.Store
	control *control.Store
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *aucfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the signal loop, verify loop and HTTP server, and blocks
// until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	a.printSummary()

	group, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		group.Go(func() error {
			if err := a.server.Start(ctx); err != nil {
				return fmt.Errorf("api server error: %w", err)
			}
			return nil
		})
	}

	engCfg := a.engine.Config()
	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, engCfg.SignalInterval, 0)
		sched.RunImmediately = true
		sched.Start(func() {
			if err := a.engine.RunSignalCycle(ctx); err != nil {
				logger.Errorf("signal cycle failed: %v", err)
			}
		})
		return nil
	})
	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, engCfg.VerifyInterval, 30*time.Second)
		sched.Start(func() {
			if err := a.engine.RunVerifyCycle(ctx); err != nil {
				logger.Errorf("verify cycle failed: %v", err)
			}
		})
		return nil
	})

	err := group.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("closing trade store: %v", err)
		}
	}
	if a.control != nil {
		if err := a.control.Close(); err != nil {
			logger.Warnf("closing control store: %v", err)
		}
	}
}

// Engine exposes the engine for replay and test harnesses.
func (a *App) Engine() *agent.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

func (a *App) printSummary() {
	cfg := a.cfg
	engCfg := a.engine.Config()
	logger.InfoBlock(fmt.Sprintf(
		"aurum starting\n"+
			"- symbol: %s (fallback %s)\n"+
			"- signal every %s, verify every %s\n"+
			"- history %d bars, daily cap %d, loss cooldown %d\n"+
			"- level mode %s, http %s, telegram=%v",
		cfg.TwelveData.Symbol, cfg.Binance.Symbol,
		engCfg.SignalInterval, engCfg.VerifyInterval,
		engCfg.HistoryBars, engCfg.MaxTradesPerDay, engCfg.LossCooldown,
		cfg.Level.Mode, cfg.App.HTTPAddr, cfg.Notify.Telegram.Enabled,
	))
}
