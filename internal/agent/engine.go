// Package agent runs the two recurring cycles: signal generation every
// candle close and outcome verification over the open plans. All state
// lives in the stores; the engine itself can be restarted at any point.
package agent

import (
	"context"
	"fmt"
	"time"

	"aurum/internal/analysis/visual"
	"aurum/internal/council"
	"aurum/internal/decision"
	"aurum/internal/gateway/notifier"
	"aurum/internal/grading"
	"aurum/internal/logger"
	"aurum/internal/macro"
	"aurum/internal/market"
	"aurum/internal/news"
	"aurum/internal/plan"
	"aurum/internal/profile"
	"aurum/internal/store/control"
	"aurum/internal/store/gormstore"
	"aurum/internal/verify"

	"github.com/google/uuid"
)

// Config tunes the engine loops and safety brakes.
type Config struct {
	Symbol          string        `mapstructure:"symbol"`
	SignalInterval  time.Duration `mapstructure:"signal_interval"`
	VerifyInterval  time.Duration `mapstructure:"verify_interval"`
	HistoryBars     int           `mapstructure:"history_bars"`
	MaxTradesPerDay int           `mapstructure:"max_trades_per_day"`
	LossCooldown    int           `mapstructure:"loss_cooldown"`
}

func (c Config) withDefaults() Config {
	if c.Symbol == "" {
		c.Symbol = "XAU/USD"
	}
	if c.SignalInterval <= 0 {
		c.SignalInterval = 30 * time.Minute
	}
	if c.VerifyInterval <= 0 {
		c.VerifyInterval = 5 * time.Minute
	}
	if c.HistoryBars <= 0 {
		c.HistoryBars = 100
	}
	if c.MaxTradesPerDay <= 0 {
		c.MaxTradesPerDay = 30
	}
	if c.LossCooldown <= 0 {
		c.LossCooldown = 3
	}
	return c
}

// Store is the subset of the sqlite store the engine drives.
type Store interface {
	InsertSignal(ctx context.Context, rec *gormstore.SignalRecord) error
	InsertPlan(ctx context.Context, signalID int64, createdAt time.Time, p plan.TradePlan) (int64, error)
	UngradedPlans(ctx context.Context) ([]gormstore.PlanRecord, error)
	GradeTrade(ctx context.Context, planID int64, outcome verify.Outcome) error
	LatestLevel(ctx context.Context) (grading.LevelState, error)
	CountPlansSince(ctx context.Context, t time.Time) (int64, error)
	LastResults(ctx context.Context, n int) ([]verify.Result, error)
}

// ControlStore exposes the pause flag.
type ControlStore interface {
	State(ctx context.Context) (control.State, error)
	Touch(ctx context.Context) error
}

// Verifier settles one trade request.
type Verifier interface {
	Verify(ctx context.Context, req verify.Request) verify.Outcome
}

// ChartRenderer draws the candle chart attached to plan notifications.
// Optional: without it (or a photo-capable notifier) plans go out as text.
type ChartRenderer interface {
	RenderTradeChart(ctx context.Context, symbol string, candles []market.Candle, p *plan.TradePlan) (visual.ImageResult, error)
}

// Engine wires the cycle collaborators.
type Engine struct {
	cfg      Config
	bars     market.BarSource
	macro    *macro.Service
	profiles *profile.Registry
	risk     plan.RiskConfig
	verifier Verifier
	store    Store
	control  ControlStore
	guard    *news.Guard
	notify   notifier.TextNotifier
	charts   ChartRenderer
	now      func() time.Time
}

// New builds an Engine. All collaborators are required except notify,
// which defaults to a no-op.
func New(cfg Config, bars market.BarSource, macroSvc *macro.Service,
	profiles *profile.Registry, risk plan.RiskConfig, verifier Verifier,
	store Store, ctl ControlStore, guard *news.Guard, notify notifier.TextNotifier) (*Engine, error) {

	if bars == nil || macroSvc == nil || profiles == nil || verifier == nil ||
		store == nil || ctl == nil || guard == nil {
		return nil, fmt.Errorf("agent: missing collaborator")
	}
	if notify == nil {
		notify = notifier.Noop{}
	}
	if err := risk.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg.withDefaults(),
		bars:     bars,
		macro:    macroSvc,
		profiles: profiles,
		risk:     risk,
		verifier: verifier,
		store:    store,
		control:  ctl,
		guard:    guard,
		notify:   notify,
		now:      time.Now,
	}, nil
}

// WithClock replaces the wall clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithCharts attaches an optional chart renderer for plan notifications.
func (e *Engine) WithCharts(charts ChartRenderer) *Engine {
	e.charts = charts
	return e
}

// Config returns the effective loop settings for the app wiring.
func (e *Engine) Config() Config { return e.cfg }

// RunSignalCycle executes one full signal pass: guards, analyst votes,
// macro reading, aggregation, persistence, and (for an actionable
// verdict) a trade plan.
func (e *Engine) RunSignalCycle(ctx context.Context) error {
	trace := uuid.NewString()[:8]
	now := e.now().UTC()

	state, err := e.control.State(ctx)
	if err != nil {
		return fmt.Errorf("control state: %w", err)
	}
	if state.Paused {
		logger.Infof("[%s] engine paused, skipping signal cycle", trace)
		return nil
	}
	if !MarketOpen(now) {
		logger.Infof("[%s] market closed, skipping signal cycle", trace)
		return nil
	}

	candles, err := e.bars.FetchRecent(ctx, e.cfg.HistoryBars)
	if err != nil {
		return fmt.Errorf("fetch bars: %w", err)
	}
	if len(candles) == 0 {
		logger.Warnf("[%s] no closed bars available, skipping", trace)
		return nil
	}
	price := market.LastClose(candles)

	opinions := council.Evaluate(candles)
	reading := e.macro.Reading(ctx)

	verdicts := make(map[string]decision.Verdict, len(opinions))
	for member, op := range opinions {
		verdicts[member] = op.Verdict
	}
	prof := e.profiles.Active()
	res := decision.Aggregate(verdicts, reading.Verdict, prof.Aggregation)

	blackout, reason := e.guard.Check()
	rec := &gormstore.SignalRecord{
		TraceID:        trace,
		CreatedAt:      now,
		Price:          price,
		Opinions:       opinions,
		Macro:          reading,
		Decision:       res,
		Blackout:       blackout,
		BlackoutReason: blackoutReason(blackout, reason),
	}
	if err := e.store.InsertSignal(ctx, rec); err != nil {
		return fmt.Errorf("persist signal: %w", err)
	}
	logger.Infof("[%s] signal #%d: %s @ %.2f (score %+.1f, conf %d%%, profile %s)",
		trace, rec.ID, res.FinalVerdict, price, res.Score, res.Confidence, prof.ID)

	defer func() {
		if err := e.control.Touch(ctx); err != nil {
			logger.Warnf("[%s] control touch failed: %v", trace, err)
		}
	}()

	if blackout {
		logger.Infof("[%s] news blackout: %s", trace, reason)
		e.send(notifier.BlackoutMessage(reason, now))
		return nil
	}
	if res.FinalVerdict == decision.VerdictNeutral {
		return nil
	}

	if ok, brake := e.safetyCheck(ctx, now); !ok {
		logger.Warnf("[%s] safety brake: %s", trace, brake)
		e.notifyText("⚠️ Trading paused: " + brake)
		return nil
	}

	level, err := e.store.LatestLevel(ctx)
	if err != nil {
		return fmt.Errorf("latest level: %w", err)
	}
	tradePlan, err := plan.Create(candles, res.FinalVerdict, level.Balance, e.risk)
	if err != nil {
		logger.Warnf("[%s] no trade plan: %v", trace, err)
		return nil
	}
	planID, err := e.store.InsertPlan(ctx, rec.ID, now, *tradePlan)
	if err != nil {
		return fmt.Errorf("persist plan: %w", err)
	}
	logger.Infof("[%s] trade #%d: %s @ %.2f | SL %.2f | TP %.2f | %.2f lots",
		trace, planID, tradePlan.Direction, tradePlan.Entry,
		tradePlan.StopLoss, tradePlan.TakeProfit, tradePlan.Lots)

	e.send(notifier.SignalMessage(trace, price, res, reading, opinions, now))
	e.send(notifier.PlanMessage(*tradePlan, level.Balance, now))
	e.sendChart(ctx, candles, tradePlan)
	return nil
}

// sendChart attaches the annotated candle chart to the plan notification
// when both a renderer and a photo-capable channel are wired.
func (e *Engine) sendChart(ctx context.Context, candles []market.Candle, p *plan.TradePlan) {
	if e.charts == nil {
		return
	}
	photo, ok := e.notify.(notifier.PhotoNotifier)
	if !ok {
		return
	}
	img, err := e.charts.RenderTradeChart(ctx, e.cfg.Symbol, candles, p)
	if err != nil {
		logger.Warnf("chart render skipped: %v", err)
		return
	}
	if err := photo.SendPhoto(img.Description, img.Bytes); err != nil {
		logger.Warnf("chart send failed: %v", err)
	}
}

// RunVerifyCycle settles every ungraded plan that reached a terminal
// state. PENDING plans are left for the next pass; ERROR outcomes are
// logged and retried later.
func (e *Engine) RunVerifyCycle(ctx context.Context) error {
	plans, err := e.store.UngradedPlans(ctx)
	if err != nil {
		return fmt.Errorf("list ungraded plans: %w", err)
	}
	if len(plans) == 0 {
		return nil
	}
	logger.Infof("checking %d pending trade(s)", len(plans))

	for _, p := range plans {
		outcome := e.verifier.Verify(ctx, verify.Request{
			EntryTime:  p.CreatedAt,
			Direction:  p.Plan.Direction,
			Entry:      p.Plan.Entry,
			StopLoss:   p.Plan.StopLoss,
			TakeProfit: p.Plan.TakeProfit,
		})
		switch outcome.Result {
		case verify.ResultPending:
			continue
		case verify.ResultError:
			logger.Warnf("trade #%d verification error: %s", p.ID, outcome.Message)
			continue
		}

		if err := e.store.GradeTrade(ctx, p.ID, outcome); err != nil {
			logger.Errorf("trade #%d grading failed: %v", p.ID, err)
			continue
		}
		pnl := 0.0
		switch outcome.Result {
		case verify.ResultWin:
			pnl = p.Plan.PotentialGain
		case verify.ResultLoss:
			pnl = -p.Plan.PotentialLoss
		}
		logger.Infof("trade #%d settled: %s after %d bars (R %+.1f, pnl %+.2f)",
			p.ID, outcome.Result, outcome.Bars, outcome.RealizedR, pnl)

		level, err := e.store.LatestLevel(ctx)
		if err != nil {
			logger.Warnf("latest level after grading: %v", err)
		}
		e.send(notifier.OutcomeMessage(p.Plan, outcome, pnl, level, e.now().UTC()))
	}
	return nil
}

// safetyCheck enforces the daily trade cap and the consecutive-loss
// cooldown. Both derive from the store so restarts keep the brakes.
func (e *Engine) safetyCheck(ctx context.Context, now time.Time) (bool, string) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := e.store.CountPlansSince(ctx, midnight)
	if err != nil {
		return false, fmt.Sprintf("trade count unavailable: %v", err)
	}
	if count >= int64(e.cfg.MaxTradesPerDay) {
		return false, fmt.Sprintf("daily limit reached (%d trades)", e.cfg.MaxTradesPerDay)
	}

	results, err := e.store.LastResults(ctx, e.cfg.LossCooldown)
	if err != nil {
		return false, fmt.Sprintf("recent results unavailable: %v", err)
	}
	if len(results) >= e.cfg.LossCooldown {
		losses := 0
		for _, r := range results {
			if r != verify.ResultLoss {
				break
			}
			losses++
		}
		if losses >= e.cfg.LossCooldown {
			return false, fmt.Sprintf("cooldown: %d losses in a row", losses)
		}
	}
	return true, "OK"
}

// MarketOpen reports whether spot gold trades at t: closed from the
// Friday 22:00 UTC close until the Sunday 22:00 UTC open.
func MarketOpen(t time.Time) bool {
	t = t.UTC()
	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return t.Hour() < 22
	case time.Sunday:
		return t.Hour() >= 22
	default:
		return true
	}
}

func (e *Engine) send(msg notifier.StructuredMessage) {
	e.notifyText(msg.RenderMarkdown())
}

func (e *Engine) notifyText(text string) {
	if err := e.notify.SendText(text); err != nil {
		logger.Warnf("notification failed: %v", err)
	}
}

func blackoutReason(blackout bool, reason string) string {
	if !blackout {
		return ""
	}
	return reason
}
