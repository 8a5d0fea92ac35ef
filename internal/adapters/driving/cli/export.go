package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus as a flat backup collection",
	Long: `Writes every passage record with its text, metadata, quality flags
and index membership as one flat JSON object keyed by passage ID.
The export is suitable for backup and for inspection with standard
JSON tooling.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

// exportEntry is the serialised form of one exported passage.
type exportEntry struct {
	DocumentID   string   `json:"document_id"`
	Ordinal      int      `json:"ordinal"`
	Text         string   `json:"text"`
	Framework    *string  `json:"framework"`
	Category     *string  `json:"category"`
	Section      *string  `json:"section"`
	Keywords     []string `json:"keywords,omitempty"`
	Language     string   `json:"language"`
	WordCount    int      `json:"word_count"`
	CharCount    int      `json:"char_count"`
	QualityFlags []string `json:"quality_flags,omitempty"`
	HasEmbedding bool     `json:"has_embedding"`
	InLexical    bool     `json:"in_lexical_index"`
	InVector     bool     `json:"in_vector_index"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	records, err := statusService.Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	flat := make(map[string]exportEntry, len(records))
	for i := range records {
		flat[records[i].Passage.ID] = toExportEntry(&records[i])
	}

	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	if exportOutput == "" {
		cmd.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOutput, data, 0600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	cmd.Printf("Exported %d passages to %s\n", len(flat), exportOutput)
	return nil
}

func toExportEntry(record *domain.ExportRecord) exportEntry {
	p := &record.Passage
	return exportEntry{
		DocumentID:   p.DocumentID,
		Ordinal:      p.Ordinal,
		Text:         p.Text,
		Framework:    p.Metadata.Framework,
		Category:     p.Metadata.Category,
		Section:      p.Metadata.Section,
		Keywords:     p.Metadata.Keywords,
		Language:     p.Metadata.Language,
		WordCount:    p.Metadata.WordCount,
		CharCount:    p.Metadata.CharCount,
		QualityFlags: p.QualityFlags,
		HasEmbedding: p.HasEmbedding(),
		InLexical:    record.Membership.Lexical,
		InVector:     record.Membership.Vector,
	}
}
