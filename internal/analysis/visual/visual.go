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

	"synapse/internal/analysis/indicator"
	"synapse/internal/decision"
	"synapse/internal/series"
)

// ChartInput is one cached series plus the bar a decision was made on.
// Record is optional; without it only the bar is marked.
type ChartInput struct {
	Series      series.Series
	DecisionIdx int
	Record      *decision.Record
}

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorEmaFast       = "#3b82f6"
	colorEmaSlow       = "#f472b6"
	colorVWAP          = "#fbbf24"
	colorBand          = "#64748b"
	colorVolume        = "#a78bfa"
	colorDIF           = "#22d3ee"
	colorDEA           = "#fb7185"
	colorMarker        = "#facc15"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	volumeHeightPx = 260
	macdHeightPx   = 260
)

// RenderHTML draws candles with EMA, VWAP and Bollinger overlays, a volume
// pane and a MACD pane, marking the decision bar.
func RenderHTML(in ChartInput) ([]byte, error) {
	s := in.Series
	if s.Len() == 0 {
		return nil, fmt.Errorf("no bars to chart for %s", s.Symbol)
	}
	if in.DecisionIdx < 0 || in.DecisionIdx >= s.Len() {
		return nil, fmt.Errorf("decision index %d outside series of %d bars", in.DecisionIdx, s.Len())
	}

	xAxis := buildXAxis(s)
	kline := buildPriceChart(in, xAxis)
	volume := buildVolumeChart(s, xAxis)
	macd := buildMACDChart(s, xAxis)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(kline, volume, macd)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func initOpts(height int) opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", height),
		BackgroundColor: colorBackground,
	}
}

func buildPriceChart(in ChartInput, xAxis []string) *charts.Kline {
	s := in.Series
	minPrice, maxPrice := priceBounds(s)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(klineHeightPx)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s %s", strings.ToUpper(s.Symbol), s.Timeframe),
			Subtitle:      subtitle(in),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 4),
			Max:       round(maxPrice+padding, 4),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)

	data := make([]opts.KlineData, s.Len())
	for i, snap := range s.Snapshots {
		data[i] = opts.KlineData{Value: [4]float64{snap.Open, snap.Close, snap.Low, snap.High}}
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data, markerOpts(in, xAxis)...)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	overlay := charts.NewLine()
	overlay.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	overlay.SetXAxis(xAxis)
	pick := func(f func(indicator.Snapshot) indicator.Value) []opts.LineData {
		return toLineData(s, f)
	}
	overlay.AddSeries("EMA Fast", pick(func(x indicator.Snapshot) indicator.Value { return x.EMAFast }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaFast, Width: 2}))
	overlay.AddSeries("EMA Slow", pick(func(x indicator.Snapshot) indicator.Value { return x.EMASlow }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaSlow, Width: 2}))
	overlay.AddSeries("VWAP", pick(func(x indicator.Snapshot) indicator.Value { return x.VWAP }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorVWAP, Width: 2, Type: "dashed"}))
	overlay.AddSeries("BB Upper", pick(func(x indicator.Snapshot) indicator.Value { return x.BBUpper }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorBand, Width: 1}))
	overlay.AddSeries("BB Lower", pick(func(x indicator.Snapshot) indicator.Value { return x.BBLower }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorBand, Width: 1}))
	kline.Overlap(overlay)
	return kline
}

func subtitle(in ChartInput) string {
	at := in.Series.TimeAt(in.DecisionIdx).Format("2006-01-02 15:04")
	if in.Record == nil {
		return fmt.Sprintf("decision bar #%d @ %s", in.DecisionIdx, at)
	}
	r := in.Record
	return fmt.Sprintf("#%d @ %s | %s %s | %s", in.DecisionIdx, at, r.Decision, r.Direction, r.Reason)
}

// markerOpts pins the decision bar and, for priced trades, draws stop and
// target levels.
func markerOpts(in ChartInput, xAxis []string) []charts.SeriesOpts {
	snap := in.Series.At(in.DecisionIdx)
	label := "decision"
	if in.Record != nil && in.Record.Direction != decision.DirectionNone {
		label = string(in.Record.Direction)
	}
	out := []charts.SeriesOpts{
		charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
			Name:       label,
			Coordinate: []interface{}{xAxis[in.DecisionIdx], snap.High},
			Value:      label,
			Symbol:     "pin",
			ItemStyle:  &opts.ItemStyle{Color: colorMarker},
		}),
		charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{
			Name:  label,
			XAxis: xAxis[in.DecisionIdx],
		}),
	}
	if in.Record != nil && in.Record.RiskParams != nil {
		out = append(out,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "SL", YAxis: round(in.Record.StopLoss, 4)},
				opts.MarkLineNameYAxisItem{Name: "TP", YAxis: round(in.Record.TakeProfit, 4)},
			),
		)
	}
	return out
}

func buildXAxis(s series.Series) []string {
	x := make([]string, s.Len())
	for i, snap := range s.Snapshots {
		x[i] = snap.Time.UTC().Format("01-02 15:04")
	}
	return x
}

func buildVolumeChart(s series.Series, xAxis []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(volumeHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: "Volume", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 6,
			AxisLabel:   &opts.AxisLabel{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	vols := make([]opts.BarData, s.Len())
	for i, snap := range s.Snapshots {
		color := colorBear
		if snap.Close >= snap.Open {
			color = colorBull
		}
		vols[i] = opts.BarData{
			Value: snap.Volume,
			ItemStyle: &opts.ItemStyle{
				Color:   color,
				Opacity: opts.Float(0.6),
			},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)

	avg := charts.NewLine()
	avg.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	avg.SetXAxis(xAxis)
	avg.AddSeries("Volume SMA", toLineData(s, func(x indicator.Snapshot) indicator.Value { return x.VolumeSMA }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorVolume, Width: 2}))
	bar.Overlap(avg)
	return bar
}

func buildMACDChart(s series.Series, xAxis []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(macdHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: "MACD", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	hist := make([]opts.BarData, s.Len())
	for i, snap := range s.Snapshots {
		m, ok1 := snap.MACD.Get()
		sig, ok2 := snap.MACDSignal.Get()
		if !ok1 || !ok2 {
			hist[i] = opts.BarData{Value: nil}
			continue
		}
		v := m - sig
		color := colorBear
		if v >= 0 {
			color = colorBull
		}
		hist[i] = opts.BarData{Value: round(v, 4), ItemStyle: &opts.ItemStyle{Color: color}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("MACD Hist", hist)

	line := charts.NewLine()
	line.SetSeriesOptions(
		charts.WithLineStyleOpts(opts.LineStyle{Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("DIF", toLineData(s, func(x indicator.Snapshot) indicator.Value { return x.MACD }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorDIF, Width: 2}))
	line.AddSeries("DEA", toLineData(s, func(x indicator.Snapshot) indicator.Value { return x.MACDSignal }),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorDEA, Width: 2}))
	bar.Overlap(line)
	return bar
}

// toLineData leaves warm-up bars as gaps.
func toLineData(s series.Series, field func(indicator.Snapshot) indicator.Value) []opts.LineData {
	line := make([]opts.LineData, s.Len())
	for i, snap := range s.Snapshots {
		if v, ok := field(snap).Get(); ok {
			line[i] = opts.LineData{Value: round(v, 4)}
		} else {
			line[i] = opts.LineData{Value: nil}
		}
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

func priceBounds(s series.Series) (minVal, maxVal float64) {
	if s.Len() == 0 {
		return 0, 0
	}
	minVal, maxVal = s.Snapshots[0].Low, s.Snapshots[0].High
	for _, snap := range s.Snapshots {
		minVal = math.Min(minVal, snap.Low)
		maxVal = math.Max(maxVal, snap.High)
	}
	return minVal, maxVal
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes for a local Chrome once per process.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		parent, cancel := chromedp.NewContext(ctx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderPNG screenshots rendered chart HTML in headless Chrome.
func RenderPNG(ctx context.Context, html []byte) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	height := klineHeightPx + volumeHeightPx + macdHeightPx
	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(chartWidthPx), int64(height)),
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
