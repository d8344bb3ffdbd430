package main

import (
	"context"
	"log"

	"payledger/internal/app/server"
	"payledger/internal/platform/config"
)

func main() {
	cfg := config.Load()

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
