package main

import (
	"log"

	"github.com/livefire2015/ez-society/src/config"
	"github.com/livefire2015/ez-society/src/logger"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		if setupErr := logger.Setup(logger.DefaultConfig()); setupErr != nil {
			log.Fatalf("Failed to initialize logger: %v", setupErr)
		}
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	Execute()
}
