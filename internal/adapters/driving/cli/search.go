package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driving"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed passages",
	Long: `Performs hybrid retrieval across the indexed passages, combining
vector similarity with multi-signal lexical scoring. When the vector
path is unreachable the engine falls back to lexical-only retrieval,
and to metadata matching as the last resort; the confidence tier of
the serving path is always reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	results, confidence, err := queryService.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		if errors.Is(err, domain.ErrRetrievalUnavailable) {
			return errors.New("retrieval unavailable: no index or corpus is reachable")
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results, confidence)
	}
	return outputSearchTable(cmd, results, confidence)
}

func outputSearchJSON(cmd *cobra.Command, results []driving.SearchResult, confidence domain.Confidence) error {
	payload := struct {
		Confidence domain.Confidence      `json:"confidence"`
		Results    []driving.SearchResult `json:"results"`
	}{confidence, results}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []driving.SearchResult, confidence domain.Confidence) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s confidence):\n\n", confidence)
	for i := range results {
		p := &results[i].Passage
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, p.ID, results[i].Score)
		if p.Metadata.Section != nil {
			cmd.Printf("      Section: %s\n", *p.Metadata.Section)
		}
		if p.Metadata.Category != nil {
			cmd.Printf("      Category: %s\n", *p.Metadata.Category)
		}
		if len(results[i].Signals) > 0 {
			cmd.Printf("      Signals: %s\n", strings.Join(results[i].Signals, ", "))
		}
		cmd.Printf("      %s\n\n", snippet(p.Text, 200))
	}
	return nil
}

// snippet truncates text to roughly n bytes on a word boundary.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= n {
		return text
	}
	cut := strings.LastIndex(text[:n], " ")
	if cut <= 0 {
		cut = n
	}
	return text[:cut] + "..."
}
