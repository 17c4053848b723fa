package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cybergraph/backend/internal/attack"
	"cybergraph/backend/internal/graph"
)

var (
	matrices          []string
	includeDeprecated bool
	maxDepth          int
	retrievalMode     string
	showContext       bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create uniqueness constraints and lookup indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(application.EnsureSchema(cmd.Context()))
	},
}

var importAttackCmd = &cobra.Command{
	Use:   "import-attack",
	Short: "Import one or more MITRE ATT&CK matrices",
	Long: fmt.Sprintf(`Downloads the requested matrices concurrently and imports them one after
another. Known matrices: %s.`, strings.Join(attack.Matrices(), ", ")),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(matrices) == 0 {
			matrices = []string{application.Config.AttackMatrix}
		}
		deprecated := includeDeprecated || application.Config.IncludeDeprecated
		results, err := application.ImportMatrices(cmd.Context(), matrices, deprecated)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract entities from a source and add them to the graph",
}

var ingestTextCmd = &cobra.Command{
	Use:   "text [text|-]",
	Short: "Ingest raw text; '-' reads standard input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := args[0]
		if text == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(data)
		}
		res, err := application.Pipeline.IngestText(cmd.Context(), text)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var ingestPDFCmd = &cobra.Command{
	Use:   "pdf [file]",
	Short: "Ingest the text of a PDF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}
		res, err := application.Pipeline.IngestPDF(cmd.Context(), filepath.Base(args[0]), f, info.Size())
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var ingestYouTubeCmd = &cobra.Command{
	Use:   "youtube [url]",
	Short: "Ingest the transcript of a YouTube video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := application.Pipeline.IngestYouTube(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var ingestURLCmd = &cobra.Command{
	Use:   "url [url]",
	Short: "Ingest the readable text of a web page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := application.Pipeline.IngestURL(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths [start] [end]",
	Short: "Find shortest paths between two fuzzy-matched entities",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := application.Paths.FindPaths(cmd.Context(), args[0], args[1], maxDepth)
		if len(paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No paths found.")
			return nil
		}
		for i, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, strings.Join(p, " -> "))
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from graph context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, ok := graph.ParseMode(retrievalMode)
		if !ok {
			return fmt.Errorf("unknown mode %q (known: hybrid, graph, vector)", retrievalMode)
		}

		question := strings.Join(args, " ")
		fragments := application.Retriever.Retrieve(cmd.Context(), question, mode)
		if showContext {
			for _, f := range fragments {
				fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", f.Text)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
		fmt.Fprintln(cmd.OutOrStdout(), application.Generator.Generate(cmd.Context(), question, fragments))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node and relationship counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(application.Inspector.Stats(cmd.Context()))
	},
}

func init() {
	importAttackCmd.Flags().StringSliceVar(&matrices, "matrix", nil, "matrices to import (default ATTACK_MATRIX)")
	importAttackCmd.Flags().BoolVar(&includeDeprecated, "include-deprecated", false, "keep revoked and deprecated objects")

	pathsCmd.Flags().IntVar(&maxDepth, "max-depth", graph.ClampDepth(0), "maximum hops (1-10)")

	askCmd.Flags().StringVar(&retrievalMode, "mode", string(graph.ModeHybrid), "retrieval mode: hybrid, graph or vector")
	askCmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved fragments before the answer")

	ingestCmd.AddCommand(ingestTextCmd, ingestPDFCmd, ingestYouTubeCmd, ingestURLCmd)
	rootCmd.AddCommand(schemaCmd, importAttackCmd, ingestCmd, pathsCmd, askCmd, statsCmd)
}
