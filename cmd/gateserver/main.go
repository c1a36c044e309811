package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahwuocdz/gateserver/pkg/server"
	"github.com/ahwuocdz/gateserver/pkg/store"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		server.EnableDebugLogging()
	}

	config, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := store.Open(config.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open account database: %v", err)
	}
	defer db.Close()
	log.Printf("Account database ready at %s", config.Database.Path)

	srv := server.NewServer(db, config)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %v, shutting down", sig)

	if err := srv.Stop(); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}
