package bot

import (
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/eventcal/internal/calendar"
	"github.com/tazhate/eventcal/internal/controller"
	"github.com/tazhate/eventcal/internal/domain"
)

// sender is the part of the Telegram API the view uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// chatView renders a controller into one chat. The month grid, form and
// modal share a single message that is edited in place; toasts are
// separate messages deleted on hide.
type chatView struct {
	api    sender
	chatID int64
	format calendar.Formatter
	loc    *time.Location

	mu sync.Mutex

	messageID int
	lastText  string
	lastKB    string

	month    controller.MonthView
	upcoming []domain.Event

	formOpen      bool
	formDate      string
	formError     string
	submitEnabled bool

	modalOpen   bool
	modalDate   string
	modalEvents []domain.Event

	toastID int
}

func newChatView(api sender, chatID int64, format calendar.Formatter, loc *time.Location) *chatView {
	if loc == nil {
		loc = time.UTC
	}
	return &chatView{
		api:           api,
		chatID:        chatID,
		format:        format,
		loc:           loc,
		submitEnabled: true,
	}
}

// detach makes the next render post a fresh message instead of editing
func (v *chatView) detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messageID = 0
	v.lastText = ""
	v.lastKB = ""
}

func (v *chatView) RenderMonth(m controller.MonthView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.month = m
	v.redraw()
}

func (v *chatView) RenderUpcoming(events []domain.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.upcoming = events
	v.redraw()
}

func (v *chatView) ShowForm(dateKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.formOpen = true
	v.formDate = dateKey
	v.formError = ""
	v.redraw()
}

func (v *chatView) SetFormDate(dateKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.formDate = dateKey
	if v.formOpen {
		v.redraw()
	}
}

func (v *chatView) ShowFormError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.formError = message
	v.redraw()
}

func (v *chatView) SetSubmitEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitEnabled = enabled
	if enabled {
		v.formError = ""
	}
	if v.formOpen {
		v.redraw()
	}
}

func (v *chatView) HideForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.formOpen = false
	v.formError = ""
	v.redraw()
}

func (v *chatView) ShowModal(dateKey string, events []domain.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modalOpen = true
	v.modalDate = dateKey
	v.modalEvents = events
	v.redraw()
}

func (v *chatView) HideModal() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modalOpen = false
	v.modalEvents = nil
	v.redraw()
}

func (v *chatView) ShowToast(t controller.Toast) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleteToast()

	msg := tgbotapi.NewMessage(v.chatID, toastText(t))
	msg.ParseMode = "HTML"
	msg.DisableNotification = t.Kind != controller.ToastError
	sent, err := v.api.Send(msg)
	if err != nil {
		log.Printf("Bot: send toast to %d: %v", v.chatID, err)
		return
	}
	v.toastID = sent.MessageID
}

func (v *chatView) HideToast() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleteToast()
}

func (v *chatView) deleteToast() {
	if v.toastID == 0 {
		return
	}
	if _, err := v.api.Request(tgbotapi.NewDeleteMessage(v.chatID, v.toastID)); err != nil {
		log.Printf("Bot: delete toast in %d: %v", v.chatID, err)
	}
	v.toastID = 0
}

// content picks what the shared message shows: modal over form over grid
func (v *chatView) content() (string, tgbotapi.InlineKeyboardMarkup) {
	switch {
	case v.modalOpen:
		return modalText(v.modalDate, v.modalEvents, v.format, v.loc), modalKeyboard(v.modalEvents)
	case v.formOpen:
		return formText(v.formDate, v.formError, v.submitEnabled, v.format), formKeyboard()
	}
	return monthText(v.month, v.upcoming, v.format), monthKeyboard(v.month, v.format)
}

// redraw sends or edits the shared message. Callers hold v.mu.
func (v *chatView) redraw() {
	if len(v.month.Cells) == 0 {
		return // nothing rendered yet
	}

	text, kb := v.content()
	kbKey := keyboardKey(kb)
	if v.messageID != 0 && text == v.lastText && kbKey == v.lastKB {
		return
	}

	if v.messageID == 0 {
		msg := tgbotapi.NewMessage(v.chatID, text)
		msg.ParseMode = "HTML"
		msg.ReplyMarkup = kb
		sent, err := v.api.Send(msg)
		if err != nil {
			log.Printf("Bot: send calendar to %d: %v", v.chatID, err)
			return
		}
		v.messageID = sent.MessageID
	} else {
		edit := tgbotapi.NewEditMessageTextAndMarkup(v.chatID, v.messageID, text, kb)
		edit.ParseMode = "HTML"
		if _, err := v.api.Send(edit); err != nil {
			log.Printf("Bot: edit calendar in %d: %v", v.chatID, err)
			return
		}
	}
	v.lastText = text
	v.lastKB = kbKey
}

func keyboardKey(kb tgbotapi.InlineKeyboardMarkup) string {
	var sb strings.Builder
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			sb.WriteString(b.Text)
			sb.WriteByte(0)
			if b.CallbackData != nil {
				sb.WriteString(*b.CallbackData)
			}
			sb.WriteByte(1)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
