package main

import (
	"log"

	"missionflow/internal/cli"
	"missionflow/internal/config"
	"missionflow/internal/logger"
)

func main() {
	settings, err := config.LoadSettings(".env")
	if err != nil {
		log.Fatalf("Fatal Error: Could not load settings: %v", err)
	}

	if err := logger.Init(settings.LogFile, settings.LogLevel); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}

	cli.Execute(settings)
}
