package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and index state",
	Long: `Reports, per passage, which indexes currently contain it. Passages
missing from the vector index are reachable through the lexical path
only, typically because their embedding failed during ingestion.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	memberships, err := statusService.Membership(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(memberships, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	var lexicalOnly, both int
	for i := range memberships {
		if memberships[i].Vector {
			both++
		} else if memberships[i].Lexical {
			lexicalOnly++
		}
	}

	cmd.Printf("Passages: %d\n", len(memberships))
	cmd.Printf("  In both indexes: %d\n", both)
	cmd.Printf("  Lexical only: %d\n", lexicalOnly)
	if lexicalOnly > 0 {
		cmd.Println()
		cmd.Println("Lexical-only passages:")
		for i := range memberships {
			if memberships[i].Lexical && !memberships[i].Vector {
				cmd.Printf("  %s\n", memberships[i].PassageID)
			}
		}
	}
	return nil
}
