package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start", "calendar":
		b.cmdCalendar(chatID)
	case "add":
		b.cmdAdd(chatID, args)
	case "today":
		b.session(chatID).ctrl.Today()
	case "refresh":
		b.session(chatID).ctrl.Refresh()
	case "help":
		b.cmdHelp(chatID)
	default:
		b.SendMessage(chatID, "Unknown command. /help")
	}
}

// cmdCalendar posts the calendar as a new message at the bottom of the chat
func (b *Bot) cmdCalendar(chatID int64) {
	s := b.session(chatID)
	s.view.detach()
	s.ctrl.Redraw()
}

// cmdAdd opens the form; "/add text" submits right away
func (b *Bot) cmdAdd(chatID int64, args string) {
	s := b.session(chatID)
	s.ctrl.OpenForm()
	if args != "" {
		description, color := parseEventText(args)
		s.ctrl.Submit(description, color)
	}
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>📅 Calendar</b>

/calendar - show the month
/add - add an event to the selected day
/add <i>text</i> - add right away
/today - back to this month
/refresh - reload events

Tap a day to select it. Days with events open their list,
where 🗑 deletes an event.
Event text may start with a color: <code>#ff0000 Dentist</code> or <code>red Dentist</code>.`

	b.SendMessage(chatID, text)
}
