package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tazhate/eventcal/config"
	"github.com/tazhate/eventcal/internal/calendar"
	"github.com/tazhate/eventcal/internal/domain"
	"github.com/tazhate/eventcal/internal/eventstore"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Refresher redraws open calendars after the store changed
type Refresher interface {
	RedrawAll()
}

// Syncer reloads the shared store from the backend
type Syncer interface {
	LoadAll(ctx context.Context) error
	Store() *eventstore.Store
}

type Scheduler struct {
	cron      *cron.Cron
	cfg       *config.Config
	sync      Syncer
	format    calendar.Formatter
	sender    MessageSender
	refresher Refresher
	timeout   time.Duration
}

func New(cfg *config.Config, syncer Syncer) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		sync:    syncer,
		format:  calendar.NewFormatter(cfg.Locale),
		timeout: 30 * time.Second,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) SetRefresher(r Refresher) {
	s.refresher = r
}

// MorningSpec turns "HH:MM" into a daily cron spec
func MorningSpec(clock string) (string, error) {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	// Periodic reload so events added elsewhere show up
	if s.cfg.SyncCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.SyncCron, func() { s.refresh(ctx) }); err != nil {
			return fmt.Errorf("add sync job: %w", err)
		}
	}

	morningSpec, err := MorningSpec(s.cfg.MorningTime)
	if err != nil {
		return fmt.Errorf("morning time: %w", err)
	}
	if _, err := s.cron.AddFunc(morningSpec, func() { s.morningDigest(ctx) }); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}

	// Fill the store before the first tick so /calendar has data right away
	s.refresh(ctx)

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, sync: %q, morning: %s)",
		s.cfg.Timezone, s.cfg.SyncCron, s.cfg.MorningTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sync.LoadAll(ctx); err != nil {
		log.Printf("Scheduled sync failed: %v", err)
		return
	}
	if s.refresher != nil {
		s.refresher.RedrawAll()
	}
}

func (s *Scheduler) morningDigest(ctx context.Context) {
	if s.sender == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// A stale store still gives a useful digest
	if err := s.sync.LoadAll(ctx); err != nil {
		log.Printf("Morning digest sync failed: %v", err)
	}

	store := s.sync.Store()
	today := store.Today()
	text := DigestText(today, store.EventsOn(today), s.format)

	s.sendTo(s.cfg.OwnerTelegramID, text)
	if s.cfg.PartnerTelegramID != 0 {
		s.sendTo(s.cfg.PartnerTelegramID, text)
	}
}

func (s *Scheduler) sendTo(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	if err := s.sender.SendMessage(chatID, text); err != nil {
		log.Printf("Error sending morning digest to %d: %v", chatID, err)
	}
}

// DigestText lists the day's events for the morning message
func DigestText(dateKey string, events []domain.Event, f calendar.Formatter) string {
	title := dateKey
	if t, err := domain.ParseDateKey(dateKey); err == nil {
		title = f.DayLabel(t)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "☀️ <b>%s</b>\n\n", html.EscapeString(title))
	if len(events) == 0 {
		sb.WriteString("No events today.")
		return sb.String()
	}
	fmt.Fprintf(&sb, "<b>%d event(s) today:</b>\n", len(events))
	for _, e := range events {
		fmt.Fprintf(&sb, "• %s\n", html.EscapeString(e.Description))
	}
	return sb.String()
}
