package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
)

var (
	askLimit int
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed passages",
	Long: `Retrieves the most relevant passages for the question and synthesizes
an answer constrained strictly to their content, citing the passages
used. When the indexed content cannot support an answer, the engine
refuses explicitly instead of speculating.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 5, "maximum number of context passages")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	answer, err := queryService.Ask(cmd.Context(), args[0], askLimit)
	if err != nil {
		if errors.Is(err, domain.ErrRetrievalUnavailable) {
			return errors.New("retrieval unavailable: no index or corpus is reachable")
		}
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if !answer.Refused && len(answer.CitedPassageIDs) > 0 {
		cmd.Printf("\nSources: %s\n", strings.Join(answer.CitedPassageIDs, ", "))
	}
	cmd.Printf("Confidence: %s\n", answer.Confidence)
	return nil
}
