package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/eventcal/config"
	"github.com/tazhate/eventcal/internal/calendar"
	"github.com/tazhate/eventcal/internal/controller"
	"github.com/tazhate/eventcal/internal/service"
)

// session is one chat's widget
type session struct {
	ctrl *controller.Controller
	view *chatView
}

type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    *config.Config
	sync   *service.SyncService
	format calendar.Formatter
	server *http.Server

	mu       sync.Mutex
	ctx      context.Context
	sessions map[int64]*session
}

func New(cfg *config.Config, syncSvc *service.SyncService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", api.Self.UserName)

	bot := &Bot{
		api:      api,
		cfg:      cfg,
		sync:     syncSvc,
		format:   calendar.NewFormatter(cfg.Locale),
		ctx:      context.Background(),
		sessions: make(map[int64]*session),
	}

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "calendar", Description: "📅 Calendar"},
		{Command: "add", Description: "➕ Add event"},
		{Command: "today", Description: "⏺ Back to this month"},
		{Command: "refresh", Description: "🔄 Reload events"},
		{Command: "help", Description: "❓ Help"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

func (b *Bot) setupWebhook() error {
	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		log.Printf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Printf("Webhook set to: %s", webhookURL)
	return nil
}

// Start receives updates until ctx is done, through a webhook when
// WEBHOOK_URL is set and long polling otherwise
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	var updates tgbotapi.UpdatesChannel
	if b.cfg.WebhookURL != "" {
		if err := b.setupWebhook(); err != nil {
			return err
		}

		updates = b.api.ListenForWebhook("/bot")

		// Health check endpoint
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		b.server = &http.Server{
			Addr:    ":" + b.cfg.BotPort,
			Handler: nil, // use DefaultServeMux
		}

		go func() {
			log.Printf("Starting webhook server on :%s", b.cfg.BotPort)
			if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Printf("Failed to delete webhook: %v", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		log.Println("Polling for updates")
	}

	for {
		select {
		case <-ctx.Done():
			if b.cfg.WebhookURL == "" {
				b.api.StopReceivingUpdates()
			}
			return nil
		case update := <-updates:
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

// session returns the chat's widget, starting it on first use
func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[chatID]; ok {
		return s
	}

	view := newChatView(b.api, chatID, b.format, b.cfg.Timezone)
	ctrl := controller.New(b.sync, view, controller.Options{
		Formatter:     b.format,
		UpcomingLimit: b.cfg.UpcomingLimit,
	})
	s := &session{ctrl: ctrl, view: view}
	b.sessions[chatID] = s

	ctx := b.ctx
	go func() {
		if err := ctrl.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller for chat %d stopped: %v", chatID, err)
		}
	}()
	log.Printf("Started calendar for chat %d", chatID)
	return s
}

// RedrawAll re-renders every open calendar from the shared store
func (b *Bot) RedrawAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		s.ctrl.Redraw()
	}
}

func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}
