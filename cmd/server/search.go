package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayush/research-dashboard/internal/research"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <topic...>",
	Short: "Run one research search and print the report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		agent, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}

		result, err := agent.Search(cmd.Context(), "cli", query)
		if err != nil {
			return fmt.Errorf("search %q: %w", query, err)
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		_, err = os.Stdout.Write(research.RenderMarkdown(query, result, time.Now()))
		return err
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the result as JSON")
}
