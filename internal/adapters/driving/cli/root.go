// Package cli provides the command-line interface for quarry.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearwater-labs/quarry-cli/internal/app"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driving"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Package-level services, wired in PersistentPreRunE.
var (
	application   *app.App
	ingestService driving.IngestService
	queryService  driving.QueryService
	statusService driving.StatusService
)

var (
	flagVerbose   bool
	flagConfigDir string
	flagSourceDir string
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Ingest documents and query them with hybrid retrieval",
	Long: `Quarry ingests a directory of documents into quality-gated passages,
enriches them with metadata, indexes them for lexical and vector
retrieval, and answers questions strictly from the indexed content.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		// The version command needs no wiring.
		if cmd.Name() == "version" {
			return nil
		}

		a, err := app.New(app.Options{
			ConfigDir: flagConfigDir,
			SourceDir: flagSourceDir,
		})
		if err != nil {
			return fmt.Errorf("initialise: %w", err)
		}

		application = a
		ingestService = a.Ingest
		queryService = a.Query
		statusService = a.Status
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if application != nil {
			return application.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default ~/.quarry)")
	rootCmd.PersistentFlags().StringVar(&flagSourceDir, "source", "", "document source directory (overrides config)")
}

// Execute runs the root command.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}
