package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aurum/internal/analysis/visual"
	"aurum/internal/grading"
	"aurum/internal/logger"
	"aurum/internal/market"
	"aurum/internal/plan"
	"aurum/internal/store/control"
	"aurum/internal/store/gormstore"
)

// Store is the slice of the trade ledger the API reads from.
type Store interface {
	RecentSignals(ctx context.Context, limit int) ([]gormstore.SignalRecord, error)
	RecentPlans(ctx context.Context, limit int) ([]gormstore.PlanRecord, error)
	PlanByID(ctx context.Context, id int64) (gormstore.PlanRecord, error)
	Council(ctx context.Context) ([]grading.CouncilEntry, error)
	LatestLevel(ctx context.Context) (grading.LevelState, error)
	LevelHistory(ctx context.Context, limit int) ([]grading.LevelState, error)
	Stats(ctx context.Context) (gormstore.Stats, error)
}

// ControlStore toggles and reports the pause flag.
type ControlStore interface {
	State(ctx context.Context) (control.State, error)
	SetPaused(ctx context.Context, paused bool) error
}

// BarProvider serves recent candles for the market chart and reports
// fetch health, including the data-source request quota.
type BarProvider interface {
	FetchRecent(ctx context.Context, limit int) ([]market.Candle, error)
	Stats() market.SourceStats
}

// ChartRenderer turns ledger data into PNG charts. Implementations may
// fail when no headless browser is installed; handlers degrade to 503.
type ChartRenderer interface {
	RenderTradeChart(ctx context.Context, symbol string, candles []market.Candle, p *plan.TradePlan) (visual.ImageResult, error)
	RenderLevelCurve(ctx context.Context, states []grading.LevelState) (visual.ImageResult, error)
}

type headlessRenderer struct{}

func (headlessRenderer) RenderTradeChart(ctx context.Context, symbol string, candles []market.Candle, p *plan.TradePlan) (visual.ImageResult, error) {
	return visual.RenderTradeChart(ctx, symbol, candles, p)
}

func (headlessRenderer) RenderLevelCurve(ctx context.Context, states []grading.LevelState) (visual.ImageResult, error) {
	return visual.RenderLevelCurve(ctx, states)
}

// Router exposes the read and control endpoints under /api.
type Router struct {
	store   Store
	control ControlStore
	bars    BarProvider
	charts  ChartRenderer
	symbol  string
}

// NewRouter builds the API router. control, bars and charts are optional;
// their endpoints answer 503 when absent.
func NewRouter(store Store, ctl ControlStore, bars BarProvider, charts ChartRenderer) *Router {
	if charts == nil {
		charts = headlessRenderer{}
	}
	return &Router{store: store, control: ctl, bars: bars, charts: charts, symbol: "XAU/USD"}
}

// Register mounts the routes on the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/signals", r.handleSignals)
	group.GET("/trades", r.handleTrades)
	group.GET("/trades/:id", r.handleTradeByID)
	group.GET("/council", r.handleCouncil)
	group.GET("/levels", r.handleLevels)
	group.GET("/stats", r.handleStats)
	group.GET("/status", r.handleStatus)
	group.POST("/control/pause", r.handlePause)
	group.POST("/control/resume", r.handleResume)
	group.GET("/chart/levels", r.handleLevelChart)
	group.GET("/chart/market", r.handleMarketChart)
}

func (r *Router) handleSignals(c *gin.Context) {
	limit := queryLimit(c, 20, 200)
	signals, err := r.store.RecentSignals(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] signals list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

func (r *Router) handleTrades(c *gin.Context) {
	limit := queryLimit(c, 20, 200)
	plans, err := r.store.RecentPlans(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] trades list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": plans, "count": len(plans)})
}

func (r *Router) handleTradeByID(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	if id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return
	}
	rec, err := r.store.PlanByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gormstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
			return
		}
		logger.Errorf("[api] trade detail failed ip=%s id=%d err=%v", c.ClientIP(), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trade": rec})
}

func (r *Router) handleCouncil(c *gin.Context) {
	entries, err := r.store.Council(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] council failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"council": entries})
}

func (r *Router) handleLevels(c *gin.Context) {
	limit := queryLimit(c, 50, 500)
	ctx := c.Request.Context()
	current, err := r.store.LatestLevel(ctx)
	if err != nil {
		logger.Errorf("[api] levels failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	history, err := r.store.LevelHistory(ctx, limit)
	if err != nil {
		logger.Errorf("[api] level history failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"current": current, "history": history})
}

func (r *Router) handleStats(c *gin.Context) {
	stats, err := r.store.Stats(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] stats failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (r *Router) handleStatus(c *gin.Context) {
	if r.control == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "control store not configured"})
		return
	}
	state, err := r.control.State(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] status failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{
		"paused":        state.Paused,
		"start_time":    state.StartTime,
		"last_activity": state.LastActivity,
	}
	if r.bars != nil {
		resp["source"] = r.bars.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handlePause(c *gin.Context) {
	r.setPaused(c, true)
}

func (r *Router) handleResume(c *gin.Context) {
	r.setPaused(c, false)
}

func (r *Router) setPaused(c *gin.Context, paused bool) {
	if r.control == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "control store not configured"})
		return
	}
	if err := r.control.SetPaused(c.Request.Context(), paused); err != nil {
		logger.Errorf("[api] set paused=%v failed ip=%s err=%v", paused, c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] paused=%v ip=%s", paused, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"paused": paused})
}

func (r *Router) handleLevelChart(c *gin.Context) {
	limit := queryLimit(c, 100, 1000)
	history, err := r.store.LevelHistory(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] level chart load failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	img, err := r.charts.RenderLevelCurve(c.Request.Context(), history)
	if err != nil {
		logger.Warnf("[api] level chart render failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", img.Bytes)
}

func (r *Router) handleMarketChart(c *gin.Context) {
	if r.bars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bar source not configured"})
		return
	}
	ctx := c.Request.Context()
	limit := queryLimit(c, 100, 500)
	candles, err := r.bars.FetchRecent(ctx, limit)
	if err != nil {
		logger.Errorf("[api] market chart fetch failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var tradePlan *plan.TradePlan
	if planID, _ := strconv.ParseInt(c.Query("plan_id"), 10, 64); planID > 0 {
		rec, err := r.store.PlanByID(ctx, planID)
		if err != nil {
			if errors.Is(err, gormstore.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		tradePlan = &rec.Plan
	}

	img, err := r.charts.RenderTradeChart(ctx, r.symbol, candles, tradePlan)
	if err != nil {
		logger.Warnf("[api] market chart render failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", img.Bytes)
}

func queryLimit(c *gin.Context, def, max int) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}
