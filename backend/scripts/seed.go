package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cybergraph/backend/internal/app"
	"cybergraph/backend/pkg/config"
	"cybergraph/backend/pkg/logger"
)

func main() {
	matrixList := flag.String("matrices", "", "Comma separated ATT&CK matrices to import (default ATTACK_MATRIX)")
	schemaOnly := flag.Bool("schema-only", false, "Only create constraints and indexes")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph seed...")

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close(context.Background())

	schema := application.EnsureSchema(ctx)
	log.Info("Schema ensured", zap.Int("applied", schema.Applied), zap.Int("failed", schema.Failed))
	if *schemaOnly {
		return
	}

	matrices := []string{cfg.AttackMatrix}
	if *matrixList != "" {
		matrices = nil
		for _, m := range strings.Split(*matrixList, ",") {
			if m = strings.TrimSpace(m); m != "" {
				matrices = append(matrices, m)
			}
		}
	}

	results, err := application.ImportMatrices(ctx, matrices, cfg.IncludeDeprecated)
	if err != nil {
		log.Fatal("Failed to import ATT&CK", zap.Error(err))
	}

	for matrix, stats := range results {
		log.Info("Matrix seeded",
			zap.String("matrix", matrix),
			zap.Int("techniques", stats.TechniquesAdded),
			zap.Int("tactics", stats.TacticsAdded),
			zap.Int("groups", stats.GroupsAdded),
			zap.Int("malware", stats.MalwareAdded),
			zap.Int("tools", stats.ToolsAdded),
			zap.Int("mitigations", stats.MitigationsAdded),
			zap.Int("relationships", stats.RelationshipsAdded),
			zap.Int("failed", stats.ObjectsFailed),
		)
	}

	log.Info("Seed complete!")
}
