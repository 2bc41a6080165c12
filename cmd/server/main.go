package main

import (
	"log"

	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	log.Println("Starting roomchat server...")

	// Load configuration from the environment
	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	registry := server.NewRegistry()

	// Pre-create rooms if a rooms file is configured
	if config.RoomsFile != "" {
		if err := server.LoadRoomsFile(config.RoomsFile, registry); err != nil {
			log.Fatalf("Failed to load rooms file: %v", err)
		}
	}

	// Setup routes
	mux := server.SetupRoutes(registry)

	// Create and start server
	httpServer := server.CreateServer(config.Addr(), mux)

	log.Fatal(server.StartServer(httpServer))
}
