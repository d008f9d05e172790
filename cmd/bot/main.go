package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tazhate/eventcal/config"
	"github.com/tazhate/eventcal/internal/bot"
	"github.com/tazhate/eventcal/internal/clients/backend"
	"github.com/tazhate/eventcal/internal/eventstore"
	"github.com/tazhate/eventcal/internal/scheduler"
	"github.com/tazhate/eventcal/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireBot(); err != nil {
		log.Fatalf("Invalid bot config: %v", err)
	}

	client := backend.NewClient(cfg.BackendURL)
	client.SetBasicAuth(cfg.APIUsername, cfg.APIPassword)

	// One store shared by every chat
	store := eventstore.New(cfg.Timezone, time.Now)
	syncSvc := service.NewSyncService(client, store)

	tgBot, err := bot.New(cfg, syncSvc)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	sched := scheduler.New(cfg, syncSvc)
	sched.SetSender(tgBot)
	sched.SetRefresher(tgBot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("EventCal bot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("EventCal bot stopped")
}
