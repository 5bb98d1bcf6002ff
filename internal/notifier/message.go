package notifier

import (
	"fmt"
	"strings"
	"time"

	"stockpilot/internal/ledger"
)

const maxMessageLen = 3800

// MessageSection 表示通知中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的推送。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Markdown 文本，自动裁剪长度。
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	header := strings.TrimSpace(m.Icon + " " + m.Title)
	if header != "" {
		b.WriteString(header + "\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(footer)
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}

func renderSections(secs []MessageSection) string {
	hasContent := false
	for _, sec := range secs {
		if len(sec.Lines) > 0 {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	for idx, sec := range secs {
		if len(sec.Lines) == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(title)
			b.WriteString("\n")
		}
		for _, line := range sec.Lines {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		if idx != len(secs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n")
	return b.String()
}

// StartupMessage 系统启动通知。
func StartupMessage(env, source string, capital float64, symbols []string) StructuredMessage {
	return StructuredMessage{
		Icon:  "🚀",
		Title: "StockPilot 启动",
		Sections: []MessageSection{{
			Lines: []string{
				fmt.Sprintf("环境: %s", env),
				fmt.Sprintf("行情源: %s", source),
				fmt.Sprintf("初始资金: %s VND", formatAmount(capital)),
				fmt.Sprintf("监控: %s", strings.Join(symbols, ", ")),
			},
		}},
		Timestamp: time.Now(),
	}
}

// TradeMessage 成交通知。
func TradeMessage(fill ledger.Fill, cash float64) StructuredMessage {
	icon := "🟢"
	lines := []string{
		fmt.Sprintf("%s %d 股 @ %s", fill.Symbol, fill.Quantity, formatAmount(fill.Price)),
		fmt.Sprintf("金额: %s VND", formatAmount(fill.Value)),
	}
	if fill.Side == "SELL" {
		icon = "🔴"
		lines = append(lines, fmt.Sprintf("已实现盈亏: %s VND", formatSigned(fill.PnL)))
	}
	lines = append(lines, fmt.Sprintf("剩余现金: %s VND", formatAmount(cash)))
	if fill.Reason != "" {
		lines = append(lines, "原因: "+fill.Reason)
	}
	return StructuredMessage{
		Icon:      icon,
		Title:     fill.Side + " " + fill.Symbol,
		Sections:  []MessageSection{{Lines: lines}},
		Timestamp: fill.At,
	}
}

// BreakerMessage 熔断触发通知。
func BreakerMessage(reason string) StructuredMessage {
	return StructuredMessage{
		Icon:  "⛔",
		Title: "风控熔断已触发",
		Sections: []MessageSection{{
			Lines: []string{
				"原因: " + reason,
				"新开仓已全部暂停，需人工复位",
			},
		}},
		Timestamp: time.Now(),
	}
}

// SummaryMessage 周期性组合摘要。
func SummaryMessage(v ledger.Valuation, realized float64, initialCapital float64) StructuredMessage {
	totalPnL := v.Equity - initialCapital
	overview := MessageSection{
		Title: "账户",
		Lines: []string{
			fmt.Sprintf("总权益: %s VND", formatAmount(v.Equity)),
			fmt.Sprintf("现金: %s VND", formatAmount(v.Cash)),
			fmt.Sprintf("总盈亏: %s (%.2f%%)", formatSigned(totalPnL), totalPnL/initialCapital*100),
			fmt.Sprintf("已实现: %s", formatSigned(realized)),
		},
	}
	holdings := MessageSection{Title: "持仓"}
	for _, pv := range v.Positions {
		holdings.Lines = append(holdings.Lines, fmt.Sprintf("%s %d 股 @ %s (%+.2f%%)",
			pv.Symbol, pv.Quantity, formatAmount(pv.Price), pv.UnrealizedPc))
	}
	if len(holdings.Lines) == 0 {
		holdings.Lines = []string{"空仓"}
	}
	return StructuredMessage{
		Icon:      "📊",
		Title:     "组合摘要",
		Sections:  []MessageSection{overview, holdings},
		Timestamp: time.Now(),
	}
}

// formatAmount renders VND amounts with thousands separators.
func formatAmount(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteRune(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func formatSigned(v float64) string {
	if v >= 0 {
		return "+" + formatAmount(v)
	}
	return formatAmount(v)
}
