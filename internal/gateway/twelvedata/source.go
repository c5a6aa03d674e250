// Package twelvedata implements the primary XAU/USD bar source and the
// macro sentiment source on top of the Twelve Data REST API.
package twelvedata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"aurum/internal/logger"
	"aurum/internal/market"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	maxOutputSize  = 5000
	maxAttempts    = 3
	datetimeLayout = "2006-01-02 15:04:05"
)

// Config drives the Twelve Data client.
type Config struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Symbol      string        `mapstructure:"symbol"`
	Interval    string        `mapstructure:"interval"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	DailyLimit  int           `mapstructure:"daily_limit"`

	DollarSymbol string `mapstructure:"dollar_symbol"`
	YieldSymbol  string `mapstructure:"yield_symbol"`
	EquitySymbol string `mapstructure:"equity_symbol"`
	FearSymbol   string `mapstructure:"fear_symbol"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(c.Symbol) == "" {
		c.Symbol = "XAU/USD"
	}
	if strings.TrimSpace(c.Interval) == "" {
		c.Interval = "1min"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.DailyLimit <= 0 {
		c.DailyLimit = 800
	}
	if strings.TrimSpace(c.DollarSymbol) == "" {
		c.DollarSymbol = "DXY"
	}
	if strings.TrimSpace(c.YieldSymbol) == "" {
		c.YieldSymbol = "US10Y"
	}
	if strings.TrimSpace(c.EquitySymbol) == "" {
		c.EquitySymbol = "SPX"
	}
	if strings.TrimSpace(c.FearSymbol) == "" {
		c.FearSymbol = "VIX"
	}
	return c
}

// Source implements market.BarSource and market.MacroSource.
type Source struct {
	cfg    Config
	client *http.Client
	quota  *Quota

	statsMu sync.Mutex
	stats   market.SourceStats
}

// New builds a Source. The API key is required.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("twelvedata: api key is required")
	}
	final := cfg.withDefaults()
	return &Source{
		cfg:    final,
		client: &http.Client{Timeout: final.HTTPTimeout},
		quota:  NewQuota(final.DailyLimit),
	}, nil
}

// FetchRecent returns the newest limit closed candles, oldest first.
func (s *Source) FetchRecent(ctx context.Context, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxOutputSize {
		limit = maxOutputSize
	}
	return s.fetchSeries(ctx, s.cfg.Symbol, s.cfg.Interval, limit)
}

// Price returns the current quote for the traded symbol. Used by the
// startup health check.
func (s *Source) Price(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("symbol", s.cfg.Symbol)
	body, err := s.doJSON(ctx, "/price", params)
	if err != nil {
		return 0, err
	}
	price := body.Get("price")
	if !price.Exists() {
		return 0, fmt.Errorf("twelvedata: price missing from response")
	}
	return price.Float(), nil
}

// FetchMacroBundle derives the three gold-relevant macro signals from
// dollar, yield and equity trends. The equity trend sets the risk tone;
// the fear index quote only annotates it.
func (s *Source) FetchMacroBundle(ctx context.Context) (market.MacroBundle, error) {
	var (
		mu     sync.Mutex
		bundle market.MacroBundle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		closes, err := s.macroCloses(gctx, s.cfg.DollarSymbol)
		if err != nil {
			return fmt.Errorf("dollar: %w", err)
		}
		trend := trendOf(closes, 3)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case trend > 0:
			bundle.DXYSignal, bundle.DXYNote = -1, "Dollar rising (bearish)"
		case trend < 0:
			bundle.DXYSignal, bundle.DXYNote = 1, "Dollar falling (bullish)"
		default:
			bundle.DXYNote = "Dollar flat"
		}
		return nil
	})
	g.Go(func() error {
		closes, err := s.macroCloses(gctx, s.cfg.YieldSymbol)
		if err != nil {
			return fmt.Errorf("yields: %w", err)
		}
		trend := trendOf(closes, 3)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case trend > 0:
			bundle.YieldSignal, bundle.YieldNote = -1, "Yields rising (bearish)"
		case trend < 0:
			bundle.YieldSignal, bundle.YieldNote = 1, "Yields falling (bullish)"
		default:
			bundle.YieldNote = "Yields flat"
		}
		return nil
	})
	g.Go(func() error {
		closes, err := s.macroCloses(gctx, s.cfg.EquitySymbol)
		if err != nil {
			return fmt.Errorf("risk: %w", err)
		}
		trend := trendOf(closes, 3)
		fear := s.fearNote(gctx)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case trend < 0:
			bundle.RiskSignal, bundle.RiskNote = 1, "Risk-off (stocks down, bullish)"
		case trend > 0:
			bundle.RiskSignal, bundle.RiskNote = -1, "Risk-on (stocks up, bearish)"
		default:
			bundle.RiskNote = "Risk neutral"
		}
		if fear != "" {
			bundle.RiskNote += ", " + fear
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return market.MacroBundle{}, err
	}
	return bundle, nil
}

// Stats reports the request counters for the status endpoint.
func (s *Source) Stats() market.SourceStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// Usage exposes the daily quota counters.
func (s *Source) Usage() Usage {
	return s.quota.Usage()
}

func (s *Source) fetchSeries(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("outputsize", fmt.Sprintf("%d", limit))
	params.Set("timezone", "UTC")
	body, err := s.doJSON(ctx, "/time_series", params)
	if err != nil {
		return nil, err
	}
	values := body.Get("values")
	if !values.Exists() || !values.IsArray() {
		return nil, fmt.Errorf("twelvedata: time_series for %s has no values", symbol)
	}
	dur, ok := intervalDuration(interval)
	if !ok {
		return nil, fmt.Errorf("twelvedata: unsupported interval %q", interval)
	}
	raw := values.Array()
	// Twelve Data returns newest first; candles flow oldest first internally.
	candles := make([]market.Candle, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		v := raw[i]
		ts, err := time.ParseInLocation(datetimeLayout, v.Get("datetime").String(), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("twelvedata: bad datetime %q: %w", v.Get("datetime").String(), err)
		}
		open := ts.UnixMilli()
		candles = append(candles, market.Candle{
			OpenTime:  open,
			CloseTime: open + dur.Milliseconds() - 1,
			Open:      v.Get("open").Float(),
			High:      v.Get("high").Float(),
			Low:       v.Get("low").Float(),
			Close:     v.Get("close").Float(),
			Volume:    v.Get("volume").Float(),
		})
	}
	return candles, nil
}

// macroCloses fetches a 15min window for a macro symbol, oldest first.
func (s *Source) macroCloses(ctx context.Context, symbol string) ([]float64, error) {
	candles, err := s.fetchSeries(ctx, symbol, "15min", 10)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
	}
	return closes, nil
}

// fearNote is best effort: a failed fear-index quote never fails the bundle.
func (s *Source) fearNote(ctx context.Context) string {
	params := url.Values{}
	params.Set("symbol", s.cfg.FearSymbol)
	body, err := s.doJSON(ctx, "/quote", params)
	if err != nil {
		logger.Debugf("twelvedata fear quote failed: %v", err)
		return ""
	}
	close := body.Get("close")
	if !close.Exists() {
		return ""
	}
	return fmt.Sprintf("%s %.1f", s.cfg.FearSymbol, close.Float())
}

func (s *Source) doJSON(ctx context.Context, path string, params url.Values) (gjson.Result, error) {
	if err := s.quota.Spend(); err != nil {
		return gjson.Result{}, err
	}
	params.Set("apikey", s.cfg.APIKey)
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + path + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return gjson.Result{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
		}
		result, retryable, err := s.doOnce(ctx, endpoint)
		if err == nil {
			s.trackSuccess()
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		logger.Warnf("twelvedata %s attempt %d/%d failed: %v", path, attempt, maxAttempts, err)
	}
	s.trackFailure(lastErr)
	return gjson.Result{}, lastErr
}

func (s *Source) doOnce(ctx context.Context, endpoint string) (gjson.Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return gjson.Result{}, true, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, true, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return gjson.Result{}, true, fmt.Errorf("twelvedata: rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, resp.StatusCode >= 500, fmt.Errorf("twelvedata: http %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false, fmt.Errorf("twelvedata: invalid json body")
	}
	body := gjson.ParseBytes(raw)
	if body.Get("status").String() == "error" {
		return gjson.Result{}, false, fmt.Errorf("twelvedata: api error: %s", body.Get("message").String())
	}
	return body, false, nil
}

func (s *Source) trackSuccess() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Requests++
}

func (s *Source) trackFailure(err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Requests++
	s.stats.Failures++
	if err != nil {
		s.stats.LastError = err.Error()
	}
}

// trendOf compares the mean of the newest lookback closes to the mean of
// the lookback before it: +1 above a 0.2% band, -1 below, 0 inside.
func trendOf(closes []float64, lookback int) int {
	if lookback <= 0 || len(closes) < lookback*2 {
		return 0
	}
	recent := mean(closes[len(closes)-lookback:])
	older := mean(closes[len(closes)-lookback*2 : len(closes)-lookback])
	switch {
	case older == 0:
		return 0
	case recent > older*1.002:
		return 1
	case recent < older*0.998:
		return -1
	default:
		return 0
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func intervalDuration(interval string) (time.Duration, bool) {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "1min":
		return time.Minute, true
	case "5min":
		return 5 * time.Minute, true
	case "15min":
		return 15 * time.Minute, true
	case "30min":
		return 30 * time.Minute, true
	case "45min":
		return 45 * time.Minute, true
	case "1h":
		return time.Hour, true
	case "4h":
		return 4 * time.Hour, true
	case "1day":
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}
