package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents from the source directory",
	Long: `Reads every document from the configured source directory, splits it
into quality-gated passages, enriches them with metadata, and builds
the lexical and vector indexes. Failing documents are skipped and
reported; they never abort the batch.

With --watch, stays running and re-ingests documents as they change.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the source for changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	report, err := ingestService.IngestAll(ctx)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if !ingestWatch {
		return nil
	}

	changes, err := application.Source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch source: %w", err)
	}
	cmd.Println("Watching for changes. Ctrl-C to stop.")

	for doc := range changes {
		logger.Info("Change detected: %s", doc.Name)
		report, err := ingestService.IngestDocument(ctx, &doc)
		if err != nil {
			return fmt.Errorf("re-ingest %s: %w", doc.Name, err)
		}
		printReport(cmd, report)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Ingested %d documents, %d passages in %s\n",
		report.DocumentsProcessed, report.PassagesCreated,
		report.FinishedAt.Sub(report.StartedAt).Round(0))

	if report.PassagesCreated > 0 {
		cmd.Printf("  Passage words: min %d, max %d, mean %.0f\n",
			report.WordCountMin, report.WordCountMax, report.WordCountMean)
	}
	for _, lang := range sortedKeys(report.LanguageDistribution) {
		cmd.Printf("  Language %s: %d\n", lang, report.LanguageDistribution[lang])
	}
	for _, category := range sortedKeys(report.CategoryDistribution) {
		cmd.Printf("  Category %s: %d\n", category, report.CategoryDistribution[category])
	}
	if report.RefinementFallbacks > 0 {
		cmd.Printf("  Mechanical boundary fallbacks: %d\n", report.RefinementFallbacks)
	}
	if len(report.FlaggedPassages) > 0 {
		cmd.Printf("  Flagged passages: %d\n", len(report.FlaggedPassages))
		for _, id := range report.FlaggedPassages {
			logger.Debug("  flagged: %s", id)
		}
	}
	if len(report.VectorUnindexed) > 0 {
		cmd.Printf("  Lexical-only passages (embedding failed): %d\n", len(report.VectorUnindexed))
	}
	for _, skipped := range report.Skipped {
		cmd.Printf("  Skipped %s: %s\n", skipped.Name, skipped.Reason)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
