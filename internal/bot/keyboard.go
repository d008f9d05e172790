package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/eventcal/internal/calendar"
	"github.com/tazhate/eventcal/internal/controller"
	"github.com/tazhate/eventcal/internal/domain"
)

const noop = "noop"

// monthKeyboard draws the grid: title, weekday header, 6 weeks, navigation
func monthKeyboard(m controller.MonthView, f calendar.Formatter) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(m.Title, "nav:today"),
	))

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(f.WeekdayShort(d), noop))
	}
	rows = append(rows, header)

	for _, week := range calendar.Rows(m.Cells) {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(week))
		for _, cell := range week {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(dayLabel(cell, m), "day:"+cell.Key))
		}
		rows = append(rows, row)
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️", "nav:prev"),
			tgbotapi.NewInlineKeyboardButtonData("⏺", "nav:today"),
			tgbotapi.NewInlineKeyboardButtonData("▶️", "nav:next"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕", "add"),
			tgbotapi.NewInlineKeyboardButtonData("🔄", "refresh"),
		),
	)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// dayLabel marks today as [d], the selection as (d), days with events
// with a dot and days outside the month with a middle dot prefix
func dayLabel(cell calendar.Cell, m controller.MonthView) string {
	label := fmt.Sprintf("%d", cell.Day)
	if !cell.InMonth {
		return "·" + label
	}
	if m.Counts[cell.Key] > 0 {
		label += "•"
	}
	switch {
	case cell.IsToday:
		label = "[" + label + "]"
	case cell.Key == m.Selected:
		label = "(" + label + ")"
	}
	return label
}

// modalKeyboard lists a day's events with delete buttons
func modalKeyboard(events []domain.Event) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range events {
		if e.Pending || domain.IsLocal(e.ID) {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏳ "+truncate(e.Description, 30), noop),
			))
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+truncate(e.Description, 30), "del:"+e.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️", "close"),
		tgbotapi.NewInlineKeyboardButtonData("➕", "add"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// formKeyboard is shown while waiting for the event text
func formKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️", "cancel"),
		),
	)
}

func dayTitle(dateKey string, f calendar.Formatter) string {
	t, err := domain.ParseDateKey(dateKey)
	if err != nil {
		return dateKey
	}
	return f.DayLabel(t)
}

func monthText(m controller.MonthView, upcoming []domain.Event, f calendar.Formatter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 <b>%s</b>\n", html.EscapeString(m.Title))
	if m.Selected != "" {
		fmt.Fprintf(&sb, "▸ %s\n", html.EscapeString(dayTitle(m.Selected, f)))
	}
	if len(upcoming) > 0 {
		sb.WriteString("\n")
		for _, e := range upcoming {
			fmt.Fprintf(&sb, "%s <i>%s</i> %s\n",
				colorDot(e.Color), html.EscapeString(dayTitle(e.DateKey, f)), html.EscapeString(e.Description))
		}
	}
	return sb.String()
}

func modalText(dateKey string, events []domain.Event, f calendar.Formatter, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📌 <b>%s</b>\n\n", html.EscapeString(dayTitle(dateKey, f)))
	for _, e := range events {
		fmt.Fprintf(&sb, "%s %s <i>%s</i>\n",
			colorDot(e.Color), html.EscapeString(e.Description), f.Clock(e.CreatedAt.In(loc)))
	}
	return sb.String()
}

func formText(dateKey, errMsg string, enabled bool, f calendar.Formatter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "➕ <b>%s</b>\n\n", html.EscapeString(dayTitle(dateKey, f)))
	if enabled {
		sb.WriteString("Send the event text. Start with a color (#ff0000, red, blue...) to pick one.\n")
	} else {
		sb.WriteString("⏳ Saving...\n")
	}
	if errMsg != "" {
		fmt.Fprintf(&sb, "\n❌ %s\n", html.EscapeString(errMsg))
	}
	return sb.String()
}

func toastText(t controller.Toast) string {
	switch t.Kind {
	case controller.ToastSuccess:
		return "✅ " + html.EscapeString(t.Message)
	case controller.ToastError:
		return "❌ " + html.EscapeString(t.Message)
	}
	return "ℹ️ " + html.EscapeString(t.Message)
}

var colorDots = map[string]string{
	"red":    "🔴",
	"orange": "🟠",
	"yellow": "🟡",
	"green":  "🟢",
	"blue":   "🔵",
	"purple": "🟣",
	"brown":  "🟤",
	"black":  "⚫",
	"white":  "⚪",
}

// colorDot picks the closest emoji for an event color
func colorDot(color string) string {
	if dot, ok := colorDots[strings.ToLower(color)]; ok {
		return dot
	}
	if name, ok := hexNames[strings.ToLower(color)]; ok {
		return colorDots[name]
	}
	return "•"
}

var hexNames = map[string]string{
	domain.DefaultColor: "blue",
	"#ff0000":           "red",
	"#00ff00":           "green",
	"#0000ff":           "blue",
	"#ffff00":           "yellow",
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
