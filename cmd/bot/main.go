package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ltdang/musicrelay/internal/bot"
	"github.com/ltdang/musicrelay/internal/config"
	"github.com/ltdang/musicrelay/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: "text",
	})

	log.Info("Starting musicrelay")

	relay, err := bot.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := relay.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Info("Bot is running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	relay.Stop()
	log.Info("Bot stopped")
}
