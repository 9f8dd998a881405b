package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anomredux/claude-relay/internal/api"
	"github.com/anomredux/claude-relay/internal/domain"
	"github.com/anomredux/claude-relay/internal/report"
)

const minWidth = 40

// Summary renders a usage report as stacked cards.
func Summary(resp report.Response, width int) string {
	if width < minWidth {
		width = minWidth
	}
	cards := []string{
		sessionCard(resp, width),
		utilizationCard(resp.Utilization, width),
		dailyCard(resp, width),
	}
	if wx := resp.Weather; !wx.Failed() && wx.City != "" {
		line := fmt.Sprintf("%s %s", wx.Icon, wx.Condition)
		if wx.TempC != nil {
			line = fmt.Sprintf("%s %.1f°C", line, *wx.TempC)
		}
		cards = append(cards, mutedStyle.Render(line+" @ "+wx.City))
	}
	return strings.Join(cards, "\n")
}

func sessionCard(resp report.Response, width int) string {
	s := resp.Session
	c := Card{Title: fmt.Sprintf("Session · %s", resp.Plan), Width: width}
	barW := c.InnerWidth() - 28

	rows := []string{
		meterRow("cost", FormatUSD(s.CostUSD), FormatUSD(s.CostLimit), ratio(s.CostUSD, s.CostLimit), barW),
		meterRow("tokens", FormatCompact(s.TokensUsed), FormatCompact(s.TokenLimit),
			ratio(float64(s.TokensUsed), float64(s.TokenLimit)), barW),
		meterRow("messages", FormatNumber(s.MessagesSent), FormatNumber(s.MessageLimit),
			ratio(float64(s.MessagesSent), float64(s.MessageLimit)), barW),
		"",
		bodyStyle.Render(fmt.Sprintf("burn %s tok/min · %s/min · resets in %s",
			FormatNumber(int(s.BurnRate)), FormatUSD(s.CostRate),
			FormatDuration(time.Duration(s.MinutesRemaining*float64(time.Minute))))),
		mutedStyle.Render(fmt.Sprintf("in %s · out %s · cache w %s · cache r %s",
			FormatCompact(s.InputTokens), FormatCompact(s.OutputTokens),
			FormatCompact(s.CacheWriteTokens), FormatCompact(s.CacheReadTokens))),
	}
	c.Content = strings.Join(rows, "\n")
	return c.Render()
}

func ratio(used, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return used / limit
}

func meterRow(label, used, limit string, fraction float64, barW int) string {
	value := fmt.Sprintf("%s / %s", used, limit)
	if fraction > 1 {
		value = alertStyle.Render(value)
	} else {
		value = bodyStyle.Render(value)
	}
	return padRight(mutedStyle.Render(label), 9) + Bar(fraction, max(barW, 5)) + " " + value
}

func utilizationCard(u api.Utilization, width int) string {
	c := Card{Title: "Account utilization", Width: width}
	barW := c.InnerWidth() - 30
	row := func(label string, b api.UtilizationBucket) string {
		pct := accentStyle.Render(fmt.Sprintf("%3d%%", b.Pct))
		return padRight(mutedStyle.Render(label), 9) + Bar(float64(b.Pct)/100, max(barW, 5)) + " " + pct + " " + mutedStyle.Render(b.ResetLabel)
	}
	c.Content = strings.Join([]string{
		row("5h", u.Session),
		row("weekly", u.Weekly),
		row("sonnet", u.Sonnet),
	}, "\n")
	return c.Render()
}

func dailyCard(resp report.Response, width int) string {
	c := Card{Title: "Today", Width: width}
	rows := []string{
		bodyStyle.Render(fmt.Sprintf("%s · %s tokens", FormatUSD(resp.Daily.CostUSD), FormatNumber(resp.Daily.Tokens))),
	}

	names := make([]string, 0, len(resp.Models))
	for name := range resp.Models {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := resp.Models[names[i]], resp.Models[names[j]]
		if a.Cost != b.Cost {
			return a.Cost > b.Cost
		}
		return names[i] < names[j]
	})
	nameW := c.InnerWidth() - 22
	for _, name := range names {
		m := resp.Models[name]
		label := name
		if len(label) > nameW && nameW > 1 {
			label = label[:nameW-1] + "…"
		}
		rows = append(rows, padRight(accentStyle.Render(label), nameW)+
			bodyStyle.Render(fmt.Sprintf("%10s %9s", FormatCompact(m.Input+m.Output+m.CacheWrite+m.CacheRead), FormatUSD(m.Cost))))
	}
	if len(names) == 0 {
		rows = append(rows, mutedStyle.Render("no usage yet"))
	}
	c.Content = strings.Join(rows, "\n")
	return c.Render()
}

// Blocks renders session blocks as a table, newest last.
func Blocks(blocks []domain.SessionBlock, now time.Time, loc *time.Location) string {
	if len(blocks) == 0 {
		return mutedStyle.Render("no session blocks in range")
	}
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-17s %-6s %8s %10s %10s", "start", "end", "messages", "tokens", "cost")))
	sb.WriteString("\n")
	for _, b := range blocks {
		st := domain.SummarizeSession(b.Entries)
		line := fmt.Sprintf("%-17s %-6s %8d %10s %10s",
			b.Start.In(loc).Format("Mon 01-02 15:04"),
			b.End.In(loc).Format("15:04"),
			st.Messages,
			FormatCompact(st.TokensUsed()),
			FormatUSD(st.CostUSD))
		if b.Active(now) {
			sb.WriteString(accentStyle.Render(line + "  active"))
		} else {
			sb.WriteString(bodyStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
