package main

import (
	"flag"
	"log"
	"os"

	"SignalDesk/internal/di"
	"SignalDesk/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s store=%s gateway=%s portfolios=%d",
		cfg.Environment, cfg.Store.Type, cfg.Gateway.Type, len(cfg.Portfolios))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
