package main

import (
	"log/slog"

	"github.com/quarrylabs/stratum/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    Stratum Colored Logger Demo")
	log.Info("============================================")

	log.Debug("Debug message - standard color")
	log.Info("Info message - standard color")
	log.Info("Ingesting entities into graph store - green!")
	log.Info("Stored chunk batch - also green!")
	log.Warn("Warning message - yellow!")
	log.Error("Error message - red!")

	log.Info("Storage operations are highlighted in green:")
	log.Info("Ingested entity batch", "count", 42, "tenant", "plant_a")
	log.Info("Stored chunks", "count", 156, "duration", "1.8s")

	log.Warn("Warnings appear in yellow for attention")
	log.Error("Errors appear in red for immediate visibility")

	log.Info("Demo complete!")
}
