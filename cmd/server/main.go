package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rentalhub/rentalhub-be/internal/config"
	"github.com/rentalhub/rentalhub-be/internal/notify"
	"github.com/rentalhub/rentalhub-be/internal/server"
	"github.com/rentalhub/rentalhub-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer store.Close()

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPConfigured() {
		smtp, err := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
		if err != nil {
			log.Fatalf("init mailer: %v", err)
		}
		mailer = smtp
	}
	dispatcher := notify.NewDispatcher(mailer, store, store, store, store)
	defer dispatcher.Close()

	if cfg.PaymentDevMode() {
		log.Println("WARNING: payment dev mode active, settlement signature checks are bypassed")
	}

	srv := server.New(cfg, store, dispatcher)

	go func() {
		log.Printf("RentalHub backend listening on %s", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
