// Package charts renders deck battle history as interactive HTML charts.
package charts

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/TCG-Companion/internal/stats"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title      string   // Chart title
	Subtitle   string   // Chart subtitle
	Width      string   // Chart width (e.g., "900px")
	Height     string   // Chart height (e.g., "500px")
	Theme      string   // Chart theme
	ShowLegend bool     // Show legend
	Smooth     bool     // Smooth line (for line charts)
	Colors     []string // Custom colors
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:      "900px",
		Height:     "500px",
		Theme:      "light",
		ShowLegend: true,
		Smooth:     true,
		Colors:     []string{"#5470C6", "#91CC75", "#EE6666", "#FAC858", "#73C0DE"},
	}
}

func (c ChartConfig) color(i int) string {
	if len(c.Colors) == 0 {
		return ""
	}
	return c.Colors[i%len(c.Colors)]
}

func (c ChartConfig) globalOptions(title, subtitle string) []charts.GlobalOpts {
	if c.Title != "" {
		title = c.Title
	}
	if c.Subtitle != "" {
		subtitle = c.Subtitle
	}
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  c.Width,
			Height: c.Height,
			Theme:  c.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(c.ShowLegend),
		}),
	}
}

// RunningTotalsChart builds a line chart of cumulative win rate, wins and losses
// after each battle.
func RunningTotalsChart(deckName string, totals []stats.RunningTotal, config ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(config.globalOptions(
		fmt.Sprintf("%s: win rate over time", deckName),
		fmt.Sprintf("%d battles", len(totals)),
	)...)

	xLabels := make([]string, len(totals))
	winRate := make([]opts.LineData, len(totals))
	wins := make([]opts.LineData, len(totals))
	losses := make([]opts.LineData, len(totals))
	for i, total := range totals {
		xLabels[i] = strconv.Itoa(total.Battle)
		winRate[i] = opts.LineData{Value: total.WinRate}
		wins[i] = opts.LineData{Value: total.Wins}
		losses[i] = opts.LineData{Value: total.Losses}
	}

	line.SetXAxis(xLabels)
	for i, series := range []struct {
		name string
		data []opts.LineData
	}{
		{"Win Rate %", winRate},
		{"Wins", wins},
		{"Losses", losses},
	} {
		line.AddSeries(series.name, series.data).
			SetSeriesOptions(
				charts.WithLineChartOpts(opts.LineChart{
					Smooth: opts.Bool(config.Smooth),
				}),
				charts.WithLabelOpts(opts.Label{
					Show: opts.Bool(false),
				}),
				charts.WithItemStyleOpts(opts.ItemStyle{
					Color: config.color(i),
				}),
			)
	}

	return line
}

// LossByOpponentChart builds a bar chart of losses per opponent, most losses first.
func LossByOpponentChart(deckName string, lossByOpponent map[string]int, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(config.globalOptions(
		fmt.Sprintf("%s: losses by opponent", deckName),
		"",
	)...)

	labels := make([]string, 0, len(lossByOpponent))
	for label := range lossByOpponent {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if lossByOpponent[labels[i]] != lossByOpponent[labels[j]] {
			return lossByOpponent[labels[i]] > lossByOpponent[labels[j]]
		}
		return labels[i] < labels[j]
	})

	xLabels := make([]string, len(labels))
	yData := make([]opts.BarData, len(labels))
	for i, label := range labels {
		xLabels[i] = label
		if label == "" {
			xLabels[i] = "(unnamed)"
		}
		yData[i] = opts.BarData{Value: lossByOpponent[label]}
	}

	bar.SetXAxis(xLabels).
		AddSeries("Losses", yData).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(true),
			}),
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color: config.color(2),
			}),
		)

	return bar
}

// RenderDeckReport writes one HTML page holding the running totals chart and,
// when the deck has lost at least once, the losses-by-opponent chart.
func RenderDeckReport(w io.Writer, deckName string, totals []stats.RunningTotal, summary stats.Stats, config ChartConfig) error {
	page := components.NewPage()
	page.PageTitle = deckName
	page.AddCharts(RunningTotalsChart(deckName, totals, config))
	if len(summary.LossByOpponent) > 0 {
		page.AddCharts(LossByOpponentChart(deckName, summary.LossByOpponent, config))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteFile creates outputPath and renders into it.
func WriteFile(outputPath string, render func(io.Writer) error) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}

	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close chart file: %w", err)
	}
	return nil
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
