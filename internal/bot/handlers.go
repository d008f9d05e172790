package bot

import (
	"log"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/eventcal/internal/controller"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(msg.From.ID) {
		b.SendMessage(chatID, "⛔ Access denied")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	// Plain text is the description of the event being added
	s := b.session(chatID)
	if s.ctrl.Snapshot().State != controller.FormOpen {
		b.SendMessage(chatID, "Tap ➕ or send /add to add an event.")
		return
	}
	description, color := parseEventText(text)
	s.ctrl.Submit(description, color)
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	if !b.cfg.IsAllowedUser(callback.From.ID) {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "⛔ Access denied"))
		return
	}

	s := b.session(callback.Message.Chat.ID)
	if !dispatch(s.ctrl, callback.Data) {
		log.Printf("Unknown callback data: %q", callback.Data)
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

// actions is the part of the controller reachable from buttons
type actions interface {
	ClickDay(dateKey string)
	NextMonth()
	PrevMonth()
	Today()
	OpenForm()
	CancelForm()
	DeleteEvent(id string)
	CloseModal()
	Refresh()
}

// dispatch routes callback data to the controller. It reports false for
// data it does not know.
func dispatch(ctrl actions, data string) bool {
	action, arg, _ := strings.Cut(data, ":")

	switch action {
	case "day":
		ctrl.ClickDay(arg)
	case "nav":
		switch arg {
		case "prev":
			ctrl.PrevMonth()
		case "next":
			ctrl.NextMonth()
		case "today":
			ctrl.Today()
		default:
			return false
		}
	case "add":
		ctrl.OpenForm()
	case "cancel":
		ctrl.CancelForm()
	case "del":
		if arg == "" {
			return false
		}
		ctrl.DeleteEvent(arg)
	case "close":
		ctrl.CloseModal()
	case "refresh":
		ctrl.Refresh()
	case noop:
	default:
		return false
	}
	return true
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// parseEventText splits an optional leading color token from the
// description: "#ff0000 Dentist" or "red Dentist"
func parseEventText(text string) (description, color string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, " ")

	if hexColor.MatchString(first) {
		return strings.TrimSpace(rest), strings.ToLower(first)
	}
	if _, ok := colorDots[strings.ToLower(first)]; ok && strings.TrimSpace(rest) != "" {
		return strings.TrimSpace(rest), strings.ToLower(first)
	}
	return text, ""
}
