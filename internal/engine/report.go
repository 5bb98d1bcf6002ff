package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"stockpilot/internal/ledger"
	"stockpilot/internal/logger"
	"stockpilot/internal/notifier"
)

// report logs a portfolio table and pushes the periodic summary.
func (e *Engine) report(v ledger.Valuation) {
	pf := e.deps.Book.Portfolio()

	t := table.NewWriter()
	t.SetTitle("PORTFOLIO")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Qty", "Avg Entry", "Price", "Value", "P&L %"})

	symbols := make([]string, 0, len(v.Positions))
	for sym := range v.Positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		pv := v.Positions[sym]
		t.AppendRow(table.Row{
			pv.Symbol,
			pv.Quantity,
			fmt.Sprintf("%.0f", pv.AvgEntry),
			fmt.Sprintf("%.0f", pv.Price),
			fmt.Sprintf("%.0f", pv.MarketValue),
			fmt.Sprintf("%+.2f%%", pv.UnrealizedPc),
		})
	}
	t.AppendFooter(table.Row{"TOTAL", "", "", fmt.Sprintf("cash %.0f", v.Cash), fmt.Sprintf("%.0f", v.Equity),
		fmt.Sprintf("%+.2f%%", (v.Equity/pf.InitialCapital-1)*100)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	logger.Infof("cycle %d report:\n%s", e.cycles, strings.TrimRight(t.Render(), "\n"))

	if e.deps.Notify != nil {
		e.deps.Notify.Post(notifier.SummaryMessage(v, pf.RealizedPnL, pf.InitialCapital))
	}
}
