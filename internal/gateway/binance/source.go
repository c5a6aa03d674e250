// Package binance implements the fallback bar source. Spot PAXGUSDT
// tracks spot gold closely enough to keep the engine scanning when the
// primary feed is down or out of quota.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"aurum/internal/market"
	"aurum/internal/scheduler"

	"github.com/adshao/go-binance/v2"
)

const maxKlineLimit = 1000

// Config drives the spot klines client.
type Config struct {
	RESTBaseURL string        `mapstructure:"rest_base_url"`
	Symbol      string        `mapstructure:"symbol"`
	Interval    string        `mapstructure:"interval"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

func (c Config) withDefaults() Config {
	c.RESTBaseURL = strings.TrimSpace(c.RESTBaseURL)
	if c.Symbol = strings.TrimSpace(c.Symbol); c.Symbol == "" {
		c.Symbol = "PAXGUSDT"
	}
	if c.Interval = strings.TrimSpace(c.Interval); c.Interval == "" {
		c.Interval = "1m"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	return c
}

// Source implements market.BarSource on the spot klines endpoint.
type Source struct {
	cfg    Config
	client *binance.Client

	statsMu sync.Mutex
	stats   market.SourceStats
}

// New builds a Source. No API key: klines are a public endpoint.
func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := binance.NewClient("", "")
	if final.RESTBaseURL != "" {
		client.BaseURL = final.RESTBaseURL
	}
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}
}

// FetchRecent returns the newest limit candles, oldest first. The last
// kline is still forming and is dropped so outcome scans only ever see
// closed bars.
func (s *Source) FetchRecent(ctx context.Context, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit >= maxKlineLimit {
		limit = maxKlineLimit - 1
	}
	// One extra so the result still holds limit bars after the trim.
	kls, err := s.client.NewKlinesService().
		Symbol(s.cfg.Symbol).
		Interval(s.cfg.Interval).
		Limit(limit + 1).
		Do(ctx)
	if err != nil {
		s.trackFailure(err)
		return nil, fmt.Errorf("binance klines %s: %w", s.cfg.Symbol, err)
	}
	s.trackSuccess()

	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	if dur, ok := scheduler.ParseIntervalDuration(s.cfg.Interval); ok {
		out = scheduler.DropUnclosedKline(out, dur)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Stats reports the request counters for the status endpoint.
func (s *Source) Stats() market.SourceStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
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

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
