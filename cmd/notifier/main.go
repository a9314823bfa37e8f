package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/seniorchoi/gigagig/internal/config"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/seniorchoi/gigagig/internal/notify"
)

const reconnectDelay = 5 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(&cfg.Logging, cfg.Server.Env)
	monitoring.Init()

	if cfg.AMQP.URL == "" {
		log.Fatal().Msg("AMQP_URL is required for the notifier")
	}

	mailer := notify.NewMailer(&cfg.Mail)
	log.Info().
		Str("mailer", mailer.Name()).
		Str("queue", cfg.AMQP.Queue).
		Msg("Starting notification worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for {
		if err := consume(ctx, cfg, mailer); err != nil {
			log.Error().Err(err).Dur("retry_in", reconnectDelay).Msg("Notification consumer stopped")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Notification worker exited")
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// consume runs one consumer session until ctx ends or the broker drops
func consume(ctx context.Context, cfg *config.Config, mailer notify.Mailer) error {
	consumer, err := notify.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, notify.BindingKeys)
	if err != nil {
		return err
	}
	defer consumer.Close()

	return consumer.Run(ctx, mailer)
}
