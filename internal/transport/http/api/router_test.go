package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/analysis/visual"
	"aurum/internal/grading"
	"aurum/internal/market"
	"aurum/internal/plan"
	"aurum/internal/store/control"
	"aurum/internal/store/gormstore"
)

type fakeStore struct {
	signals []gormstore.SignalRecord
	plans   []gormstore.PlanRecord
	level   grading.LevelState
	history []grading.LevelState
	stats   gormstore.Stats
}

func (f *fakeStore) RecentSignals(ctx context.Context, limit int) ([]gormstore.SignalRecord, error) {
	return f.signals, nil
}

func (f *fakeStore) RecentPlans(ctx context.Context, limit int) ([]gormstore.PlanRecord, error) {
	return f.plans, nil
}

func (f *fakeStore) PlanByID(ctx context.Context, id int64) (gormstore.PlanRecord, error) {
	for _, p := range f.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return gormstore.PlanRecord{}, gormstore.ErrNotFound
}

func (f *fakeStore) Council(ctx context.Context) ([]grading.CouncilEntry, error) {
	return []grading.CouncilEntry{{Member: "trend"}}, nil
}

func (f *fakeStore) LatestLevel(ctx context.Context) (grading.LevelState, error) {
	return f.level, nil
}

func (f *fakeStore) LevelHistory(ctx context.Context, limit int) ([]grading.LevelState, error) {
	return f.history, nil
}

func (f *fakeStore) Stats(ctx context.Context) (gormstore.Stats, error) {
	return f.stats, nil
}

type fakeControl struct {
	paused bool
	err    error
}

func (f *fakeControl) State(ctx context.Context) (control.State, error) {
	return control.State{Paused: f.paused, StartTime: time.Unix(100, 0)}, f.err
}

func (f *fakeControl) SetPaused(ctx context.Context, paused bool) error {
	if f.err != nil {
		return f.err
	}
	f.paused = paused
	return nil
}

type fakeBars struct{ candles []market.Candle }

func (f *fakeBars) FetchRecent(ctx context.Context, limit int) ([]market.Candle, error) {
	return f.candles, nil
}
func (f *fakeBars) Stats() market.SourceStats { return market.SourceStats{Requests: 7} }

type fakeRenderer struct {
	err   error
	plans []*plan.TradePlan
}

func (f *fakeRenderer) RenderTradeChart(ctx context.Context, symbol string, candles []market.Candle, p *plan.TradePlan) (visual.ImageResult, error) {
	f.plans = append(f.plans, p)
	if f.err != nil {
		return visual.ImageResult{}, f.err
	}
	return visual.ImageResult{Bytes: []byte("png")}, nil
}

func (f *fakeRenderer) RenderLevelCurve(ctx context.Context, states []grading.LevelState) (visual.ImageResult, error) {
	if f.err != nil {
		return visual.ImageResult{}, f.err
	}
	return visual.ImageResult{Bytes: []byte("png")}, nil
}

func newTestServer(t *testing.T, store *fakeStore, ctl *fakeControl, renderer *fakeRenderer) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Store:   store,
		Control: ctl,
		Bars:    &fakeBars{candles: []market.Candle{{Open: 1, High: 2, Low: 0.5, Close: 1.5}}},
		Charts:  renderer,
	})
	require.NoError(t, err)
	return srv
}

func doRequest(srv *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeControl{}, &fakeRenderer{})

	rec := doRequest(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignalsAndTrades(t *testing.T) {
	store := &fakeStore{
		signals: []gormstore.SignalRecord{{ID: 1, TraceID: "abc", Price: 2650}},
		plans:   []gormstore.PlanRecord{{ID: 7, SignalID: 1, Plan: plan.TradePlan{Entry: 2650}}},
	}
	srv := newTestServer(t, store, &fakeControl{}, &fakeRenderer{})

	rec := doRequest(srv, http.MethodGet, "/api/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	rec = doRequest(srv, http.MethodGet, "/api/trades/7")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/trades/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/trades/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPauseResume(t *testing.T) {
	ctl := &fakeControl{}
	srv := newTestServer(t, &fakeStore{}, ctl, &fakeRenderer{})

	rec := doRequest(srv, http.MethodPost, "/api/control/pause")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ctl.paused)

	rec = doRequest(srv, http.MethodPost, "/api/control/resume")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ctl.paused)

	rec = doRequest(srv, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Paused bool `json:"paused"`
		Source struct {
			Requests int `json:"requests"`
		} `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Paused)
	assert.Equal(t, 7, status.Source.Requests)
}

func TestLevelChartServesPNG(t *testing.T) {
	store := &fakeStore{history: []grading.LevelState{{Level: 1, Balance: 100, Target: 120}}}
	srv := newTestServer(t, store, &fakeControl{}, &fakeRenderer{})

	rec := doRequest(srv, http.MethodGet, "/api/chart/levels")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png", rec.Body.String())
}

func TestChartDegradesWithoutBrowser(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("exec: chrome not found")}
	srv := newTestServer(t, &fakeStore{}, &fakeControl{}, renderer)

	rec := doRequest(srv, http.MethodGet, "/api/chart/levels")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMarketChartOverlaysPlan(t *testing.T) {
	store := &fakeStore{plans: []gormstore.PlanRecord{{ID: 3, Plan: plan.TradePlan{Entry: 2650, StopLoss: 2640, TakeProfit: 2670}}}}
	renderer := &fakeRenderer{}
	srv := newTestServer(t, store, &fakeControl{}, renderer)

	rec := doRequest(srv, http.MethodGet, "/api/chart/market?plan_id=3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, renderer.plans, 1)
	require.NotNil(t, renderer.plans[0])
	assert.Equal(t, 2650.0, renderer.plans[0].Entry)

	rec = doRequest(srv, http.MethodGet, "/api/chart/market")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, renderer.plans, 2)
	assert.Nil(t, renderer.plans[1])
}

func TestNewServerRequiresStore(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
