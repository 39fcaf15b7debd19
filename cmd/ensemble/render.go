package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-ensemble/internal/model"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"gopkg.in/yaml.v3"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	helpStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// render writes the report in the requested format. Unknown formats fall back to the table.
func render(w io.Writer, f format, report types.Report) error {
	switch f {
	case formatJSON:
		return writeJSON(w, report)
	case formatYAML:
		return writeYAML(w, report)
	}

	if !report.OK {
		fmt.Fprintln(w, errorStyle.Render(report.Action+" failed: "+report.Error))

		if len(report.ValidActions) > 0 {
			fmt.Fprintln(w, helpStyle.Render("valid actions: "+strings.Join(report.ValidActions, ", ")))
		}

		renderSkipped(w, report.Skipped)

		return nil
	}

	if len(report.Weights) > 0 && len(report.Leaderboard) == 0 {
		section(w, "Model weights", weightsTable(report.Weights))
	}

	if len(report.Results) > 0 {
		fmt.Fprintln(w, helpStyle.Render(fmt.Sprintf("%d backtest rows written", len(report.Results))))
	}

	if len(report.Leaderboard) > 0 {
		section(w, "Leaderboard", leaderboardTable(report.Leaderboard))
	}

	if len(report.Compare) > 0 {
		section(w, "Train vs test", compareTable(report.Compare))
	}

	if report.Action == "scan" || report.Action == "full_run" || report.Action == "signals" ||
		report.Action == "monitor" || len(report.Signals) > 0 {
		section(w, "Signals", signalsTable(report.Signals))
	}

	if len(report.Resolved) > 0 {
		section(w, "Resolved", signalsTable(report.Resolved))
	}

	if len(report.Audit) > 0 {
		section(w, "Audit log", auditTable(report.Audit))
	}

	if report.Features != nil {
		renderFeatures(w, *report.Features)
	}

	renderSkipped(w, report.Skipped)
	fmt.Fprintln(w, helpStyle.Render(fmt.Sprintf("%s finished in %s", report.Action, report.Duration)))

	return nil
}

func renderProviders(w io.Writer, f format, infos []provider.ProviderInfo) error {
	switch f {
	case formatJSON:
		return writeJSON(w, infos)
	case formatYAML:
		return writeYAML(w, infos)
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		auth := "no"
		if info.RequiresAuth {
			auth = "yes"
		}

		rows = append(rows, []string{info.Name, info.DisplayName, auth, info.Description})
	}

	section(w, "Providers", newTable([]string{"Name", "Provider", "Auth", "Description"}, rows))

	return nil
}

func renderSnapshot(w io.Writer, result marketdata.SnapshotResult) error {
	symbols := make([]string, 0, len(result.Paths))
	for symbol := range result.Paths {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	rows := make([][]string, 0, len(symbols))
	for _, symbol := range symbols {
		rows = append(rows, []string{symbol, result.Paths[symbol]})
	}

	section(w, "Snapshot", newTable([]string{"Symbol", "File"}, rows))

	skipped := make(map[string]string, len(result.Failed))
	for symbol, err := range result.Failed {
		skipped[symbol] = err.Error()
	}

	renderSkipped(w, skipped)

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}

func section(w io.Writer, title string, t *table.Table) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, t.Render())
}

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})
}

func signalsTable(signals []types.Signal) *table.Table {
	rows := make([][]string, 0, len(signals))

	for _, s := range signals {
		reason := string(s.ExitReason)
		if reason == "" {
			reason = "-"
		}

		rows = append(rows, []string{
			s.Symbol,
			string(s.Status),
			fmt.Sprintf("%d%%", s.Confidence),
			fmt.Sprintf("%d/%d", s.ModelsAgree, model.Count()),
			string(s.Regime),
			price(s.EntryPrice),
			price(s.TPPrice),
			price(s.SLPrice),
			price(s.CurrentPrice),
			pct(s.PnLPct),
			fmt.Sprintf("%.2f", s.PositionSize),
			reason,
			s.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	return newTable([]string{
		"Symbol", "Status", "Conf", "Agree", "Regime", "Entry", "TP", "SL", "Price", "PnL", "Size", "Exit", "Created",
	}, rows)
}

func weightsTable(weights []types.ModelWeight) *table.Table {
	rows := make([][]string, 0, len(weights))
	for _, w := range weights {
		rows = append(rows, []string{
			w.ModelID,
			fmt.Sprintf("%.4f", w.Weight),
			fmt.Sprintf("%.3f", w.RecentSharpe),
			pct(w.RecentWinRate * 100),
		})
	}

	return newTable([]string{"Model", "Weight", "Sharpe", "Win rate"}, rows)
}

func leaderboardTable(entries []types.LeaderboardEntry) *table.Table {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Rank),
			e.Name,
			fmt.Sprintf("%.4f", e.Weight),
			fmt.Sprintf("%d", e.TestTrades),
			pct(e.WinRate * 100),
			pct(e.Return),
			fmt.Sprintf("%.3f", e.Sharpe),
		})
	}

	return newTable([]string{"#", "Model", "Weight", "Trades", "Win rate", "Return", "Sharpe"}, rows)
}

func compareTable(entries []types.CompareEntry) *table.Table {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ModelID,
			fmt.Sprintf("%.3f", e.TrainSharpe),
			fmt.Sprintf("%.3f", e.TestSharpe),
			fmt.Sprintf("%+.3f", e.OverfitGap),
			pct(e.TrainWin * 100),
			pct(e.TestWin * 100),
			fmt.Sprintf("%d/%d", e.TrainTrades, e.TestTrades),
		})
	}

	return newTable([]string{"Model", "Train Sharpe", "Test Sharpe", "Gap", "Train win", "Test win", "Trades"}, rows)
}

func auditTable(entries []types.AuditEntry) *table.Table {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Details})
	}

	return newTable([]string{"Time", "Action", "Details"}, rows)
}

func renderFeatures(w io.Writer, view types.FeatureView) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s at %s  close %s  regime %s",
		view.Symbol, view.BarTime.Format("2006-01-02 15:04"), price(view.Close), view.Regime)))

	features := make([][]string, 0, len(view.Features))
	for _, f := range view.Features {
		features = append(features, []string{f.Name, fmt.Sprintf("%.4f", f.Value)})
	}

	section(w, "Features", newTable([]string{"Feature", "Value"}, features))

	votes := make([][]string, 0, len(view.Votes))
	for _, v := range view.Votes {
		votes = append(votes, []string{v.Name, string(v.Vote), fmt.Sprintf("%.4f", v.Weight)})
	}

	section(w, "Votes", newTable([]string{"Model", "Vote", "Weight"}, votes))
	fmt.Fprintln(w, helpStyle.Render(fmt.Sprintf("%d of %d LONG, weighted score %.3f",
		view.Votes.LongCount(), len(view.Votes), view.Votes.WeightedScore())))
}

func renderSkipped(w io.Writer, skipped map[string]string) {
	if len(skipped) == 0 {
		return
	}

	symbols := make([]string, 0, len(skipped))
	for symbol := range skipped {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	for _, symbol := range symbols {
		fmt.Fprintln(w, helpStyle.Render(fmt.Sprintf("skipped %s: %s", symbol, skipped[symbol])))
	}
}

func price(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
