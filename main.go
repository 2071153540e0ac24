package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg := LoadConfig()

	repo, err := OpenRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	pubsub := NewPubSub()
	telemetry := NewTelemetry(repo)
	registry := NewRegistry(pubsub, repo, telemetry, cfg.JanitorEvery, cfg.WaitingMaxAge, cfg.PlayingMaxAge, cfg.TickInterval)
	auth := NewAuth(repo, cfg.JWTSecretEnv)

	hub := NewHub(registry, pubsub, repo, auth)
	go hub.Run()

	mux := SetupRoutes(hub)
	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("territory-arena listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)

	registry.Shutdown()
	telemetry.Stop()
}
