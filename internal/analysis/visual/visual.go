// Package visual renders signal and ledger charts to PNG via go-echarts
// and a headless browser. Rendering is optional: when no browser is
// installed the callers degrade to text-only output.
package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"aurum/internal/analysis/indicator"
	"aurum/internal/grading"
	"aurum/internal/market"
	"aurum/internal/plan"
)

type ImageResult struct {
	Bytes       []byte `json:"-"`
	Base64      string `json:"base64"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorEmaFast       = "#3b82f6"
	colorEmaSlow       = "#f472b6"
	colorEntry         = "#fbbf24"
	colorTarget        = "#22d3ee"
	colorBalance       = "#a78bfa"

	chartWidthPx  = 1600
	klineHeightPx = 600
	curveHeightPx = 420
)

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes for a usable headless browser exactly
// once per process.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderTradeChart draws the recent candles with EMA20/50 overlays and,
// when a plan is given, its entry/stop/target levels.
func RenderTradeChart(ctx context.Context, symbol string, candles []market.Candle, p *plan.TradePlan) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return ImageResult{}, err
	}
	if len(candles) == 0 {
		return ImageResult{}, fmt.Errorf("no candles to render for %s", symbol)
	}
	html, desc, err := buildTradeHTML(symbol, candles, p)
	if err != nil {
		return ImageResult{}, err
	}
	png, err := renderHTMLToPNG(ctx, html, chartWidthPx, klineHeightPx)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{
		Bytes:       png,
		Base64:      base64.StdEncoding.EncodeToString(png),
		Filename:    fmt.Sprintf("%s_signal.png", strings.ToLower(strings.ReplaceAll(symbol, "/", ""))),
		Description: desc,
	}, nil
}

// RenderLevelCurve draws balance and target across the level history.
func RenderLevelCurve(ctx context.Context, states []grading.LevelState) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return ImageResult{}, err
	}
	if len(states) == 0 {
		return ImageResult{}, fmt.Errorf("no level history to render")
	}
	html, err := buildLevelHTML(states)
	if err != nil {
		return ImageResult{}, err
	}
	png, err := renderHTMLToPNG(ctx, html, chartWidthPx, curveHeightPx)
	if err != nil {
		return ImageResult{}, err
	}
	last := states[len(states)-1]
	return ImageResult{
		Bytes:       png,
		Base64:      base64.StdEncoding.EncodeToString(png),
		Filename:    "levels.png",
		Description: fmt.Sprintf("Level %d | balance %.2f | target %.2f", last.Level, last.Balance, last.Target),
	}, nil
}

func buildTradeHTML(symbol string, candles []market.Candle, p *plan.TradePlan) ([]byte, string, error) {
	minPrice, maxPrice := priceBounds(candles)
	if p != nil {
		minPrice = math.Min(minPrice, p.StopLoss)
		maxPrice = math.Max(maxPrice, p.TakeProfit)
	}
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}

	subtitle := fmt.Sprintf("last %.2f", market.LastClose(candles))
	if p != nil {
		subtitle = fmt.Sprintf("%s %s | entry %.2f | SL %.2f | TP %.2f",
			subtitle, p.Direction, p.Entry, p.StopLoss, p.TakeProfit)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", klineHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         strings.ToUpper(symbol),
			Subtitle:      subtitle,
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 2),
			Max:       round(maxPrice+padding, 2),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	xAxis := buildXAxis(candles)
	klineData := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		klineData = append(klineData, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", klineData)

	overlay := charts.NewLine()
	overlay.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	overlay.AddSeries("EMA20", toLineData(indicator.EMA(candles, 20), len(candles)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaFast, Width: 2}))
	overlay.AddSeries("EMA50", toLineData(indicator.EMA(candles, 50), len(candles)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaSlow, Width: 2}))
	if p != nil {
		overlay.AddSeries("Entry", constLineData(p.Entry, len(candles)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorEntry, Width: 1, Type: "dashed"}))
		overlay.AddSeries("Stop", constLineData(p.StopLoss, len(candles)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorBear, Width: 1, Type: "dashed"}))
		overlay.AddSeries("Target", constLineData(p.TakeProfit, len(candles)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorTarget, Width: 1, Type: "dashed"}))
	}
	overlay.SetXAxis(xAxis)
	kline.Overlap(overlay)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(kline)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("%s | %s", strings.ToUpper(symbol), subtitle), nil
}

func buildLevelHTML(states []grading.LevelState) ([]byte, error) {
	x := make([]string, len(states))
	balances := make([]opts.LineData, len(states))
	targets := make([]opts.LineData, len(states))
	levels := make([]opts.LineData, len(states))
	for i, s := range states {
		x[i] = fmt.Sprintf("#%d %s", i+1, s.Result)
		balances[i] = opts.LineData{Value: round(s.Balance, 2)}
		targets[i] = opts.LineData{Value: round(s.Target, 2)}
		levels[i] = opts.LineData{Value: s.Level}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", curveHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Bankroll ladder",
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	line.SetXAxis(x)
	line.AddSeries("Balance", balances, charts.WithLineStyleOpts(opts.LineStyle{Color: colorBalance, Width: 2}))
	line.AddSeries("Target", targets, charts.WithLineStyleOpts(opts.LineStyle{Color: colorTarget, Width: 1, Type: "dashed"}))
	line.AddSeries("Level", levels, charts.WithLineStyleOpts(opts.LineStyle{Color: colorEntry, Width: 1}))

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(line)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildXAxis(candles []market.Candle) []string {
	x := make([]string, len(candles))
	for i, c := range candles {
		x[i] = time.UnixMilli(c.CloseTime).UTC().Format("01-02 15:04")
	}
	return x
}

func toLineData(series []float64, length int) []opts.LineData {
	line := make([]opts.LineData, length)
	offset := length - len(series)
	if offset < 0 {
		offset = 0
	}
	for i := 0; i < offset; i++ {
		line[i] = opts.LineData{Value: nil}
	}
	for i := 0; i < len(series) && offset+i < length; i++ {
		val := series[i]
		if math.IsNaN(val) || val == 0 {
			line[offset+i] = opts.LineData{Value: nil}
		} else {
			line[offset+i] = opts.LineData{Value: round(val, 2)}
		}
	}
	return line
}

func constLineData(val float64, length int) []opts.LineData {
	line := make([]opts.LineData, length)
	for i := range line {
		line[i] = opts.LineData{Value: round(val, 2)}
	}
	return line
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func priceBounds(candles []market.Candle) (minVal, maxVal float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	minVal = candles[0].Low
	maxVal = candles[0].High
	for _, c := range candles {
		if c.Low < minVal {
			minVal = c.Low
		}
		if c.High > maxVal {
			maxVal = c.High
		}
	}
	return minVal, maxVal
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
