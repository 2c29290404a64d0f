package main

import (
	"context"
	"log"

	"t3chat-be/internal/bootstrap"
	"t3chat-be/internal/config"
	"t3chat-be/internal/server"
	"t3chat-be/internal/tracer"
	"t3chat-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	// Title derivation runs off the in-process bus in the background.
	go func() {
		log.Println("Background: Starting Title Consumer...")
		if err := container.TitleConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Title Consumer Error: %v", err)
		}
	}()

	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
