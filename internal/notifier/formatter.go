package notifier

import (
	"fmt"
	"strings"
	"time"

	"RiskSentinel/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatAlert formats one alert as a notification title and body.
func FormatAlert(a model.Alert) (title, text string) {
	title = fmt.Sprintf("🚨 %s - %s", a.Type, a.Symbol)
	text = fmt.Sprintf("%s\n\n严重性: %s\n时间: %s", a.Message, a.Severity, a.Timestamp.Format(timeLayout))
	return title, text
}

// FormatDailyReport formats the post-market report.
func FormatDailyReport(r model.DailyReport) (title, text string) {
	title = fmt.Sprintf("📊 %s 盘后分析报告", r.Date.Format("2006-01-02"))
	var b strings.Builder

	b.WriteString("市场概览\n")
	if len(r.Overview) == 0 {
		b.WriteString("  暂无数据\n")
	}
	for _, q := range r.Overview {
		b.WriteString(fmt.Sprintf("  %s: %.2f (%+.2f%%)\n", q.Symbol, q.Close, q.ChangePct))
	}

	b.WriteString("\n重点关注股票\n")
	if len(r.Symbols) == 0 {
		b.WriteString("  暂无分析\n")
	}
	for _, s := range r.Symbols {
		if s.Err != "" {
			b.WriteString(fmt.Sprintf("  %s: 数据不可用\n", s.Symbol))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s 收盘 %.2f | %s\n", s.Symbol, s.Close, formatIndicators(s.Indicators)))
	}

	b.WriteString("\n风险提醒\n")
	if len(r.Alerts) == 0 {
		b.WriteString("  今日无重大风险提醒\n")
	}
	for _, a := range r.Alerts {
		b.WriteString("  " + alertLine(a) + "\n")
	}

	b.WriteString(fmt.Sprintf("\n报告生成时间: %s", r.Date.Format(timeLayout)))
	return title, b.String()
}

func formatIndicators(ind model.IndicatorSnapshot) string {
	parts := []string{"RSI -", "MACD柱 -"}
	if ind.RSIValid {
		parts[0] = fmt.Sprintf("RSI %.1f", ind.RSI)
	}
	if ind.MACDValid {
		parts[1] = fmt.Sprintf("MACD柱 %+.3f", ind.Histogram)
	}
	if ind.LevelsValid {
		parts = append(parts, fmt.Sprintf("阻力 %.2f 支撑 %.2f", ind.Resistance, ind.Support))
	}
	if ind.VolumeRatioValid {
		parts = append(parts, fmt.Sprintf("量比 %.2f", ind.VolumeRatio))
	}
	return strings.Join(parts, " | ")
}

var moodLabels = map[model.Mood]string{
	model.MoodBullish: "偏多",
	model.MoodBearish: "偏空",
	model.MoodNeutral: "中性",
}

// FormatSentiment formats the weekly breadth summary.
func FormatSentiment(r model.SentimentReport) (title, text string) {
	title = "📉 市场情绪分析"
	var b strings.Builder
	b.WriteString(fmt.Sprintf("整体情绪: %s\n\n", moodLabels[r.Mood]))
	b.WriteString(fmt.Sprintf("样本: %d (数据缺失 %d)\n", r.Evaluated, r.Unavailable))
	b.WriteString(fmt.Sprintf("RSI超买: %d | RSI超卖: %d\n", r.Overbought, r.Oversold))
	b.WriteString(fmt.Sprintf("MACD柱为正: %d | 为负: %d\n", r.MACDPositive, r.MACDNegative))
	b.WriteString(fmt.Sprintf("\n分析时间: %s", r.Date.Format(timeLayout)))
	return title, b.String()
}

// FormatAlertList formats recent alerts, oldest first.
func FormatAlertList(alerts []model.Alert) string {
	if len(alerts) == 0 {
		return "暂无预警"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("最近预警 (%d)\n", len(alerts)))
	for _, a := range alerts {
		b.WriteString(alertLine(a) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func alertLine(a model.Alert) string {
	return fmt.Sprintf("%s [%s] %s %s: %s",
		a.Timestamp.Format("01-02 15:04"), a.Severity, a.Type, a.Symbol, a.Message)
}

// FormatWatchlist formats the watched symbols.
func FormatWatchlist(symbols []string) string {
	if len(symbols) == 0 {
		return "监控列表为空"
	}
	return fmt.Sprintf("监控列表 (%d)\n%s", len(symbols), strings.Join(symbols, "\n"))
}

// FormatPassSummary formats the outcome of a manual monitoring pass.
func FormatPassSummary(symbols, skipped, suppressed int, alerts []model.Alert, took time.Duration) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("分析完成: %d 只, 跳过 %d, 新预警 %d, 去重 %d (%s)",
		symbols, skipped, len(alerts), suppressed, took.Round(time.Millisecond)))
	for _, a := range alerts {
		b.WriteString("\n" + alertLine(a))
	}
	return b.String()
}
