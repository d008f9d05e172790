package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tazhate/eventcal/config"
	"github.com/tazhate/eventcal/internal/api"
	"github.com/tazhate/eventcal/internal/clients/caldav"
	"github.com/tazhate/eventcal/internal/service"
	"github.com/tazhate/eventcal/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		hashPassword()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	// Optional CalDAV mirror
	var mirror service.Mirror
	dav := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
	if dav.IsConfigured() {
		dav.SetCalendarPath(cfg.CalDAVCalendar)
		mirror = dav
		log.Printf("Mirroring events to CalDAV at %s", cfg.CalDAVURL)
	}

	eventSvc := service.NewEventService(store, mirror, cfg.Timezone)

	apiServer := api.NewServer(eventSvc, cfg.APIUsername, cfg.ServerSecret())
	apiServer.SetUpcomingDays(cfg.UpcomingDays)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Event API listening on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping server: %v", err)
	}

	log.Println("Event API stopped")
}
