package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cybergraph/backend/internal/app"
	"cybergraph/backend/pkg/config"
	"cybergraph/backend/pkg/logger"
)

var (
	application *app.App

	rootCmd = &cobra.Command{
		Use:   "cybergraph",
		Short: "Build and query a cybersecurity knowledge graph",
		Long: `cybergraph imports MITRE ATT&CK, extracts entities from text, PDFs,
YouTube transcripts and web pages, and answers questions over the resulting
Neo4j graph. Connection settings come from the environment or a .env file.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	application, err = app.New(cmd.Context(), cfg)
	return err
}

func teardown(_ *cobra.Command, _ []string) error {
	defer logger.Sync()
	if application == nil {
		return nil
	}
	return application.Close(context.Background())
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
