package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"audio-transcriber/internal/bootstrap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (optional)")
	flag.Parse()

	app, err := bootstrap.New(*configPath)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
