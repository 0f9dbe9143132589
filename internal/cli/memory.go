package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andywolf/prompttoproduct/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "List recent classifications",
	Long: `List the most recent classified requests kept in memory, oldest first.

Examples:
  p2p memory
  p2p memory --limit 3 --json`,
	Args: cobra.NoArgs,
	RunE: listMemory,
}

func init() {
	rootCmd.AddCommand(memoryCmd)

	memoryCmd.Flags().Int("limit", 0, "Number of entries to show (0 = all)")
	memoryCmd.Flags().Bool("json", false, "Print entries as JSON")
}

func listMemory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := resolveRedisPassword(ctx, cfg); err != nil {
		return err
	}
	store, err := memory.Open(ctx, cfg.Memory)
	if err != nil {
		return fmt.Errorf("failed to open memory: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries := store.Recent(limit)
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if entries == nil {
			entries = []memory.Entry{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

const maxTextWidth = 48

func printEntries(w io.Writer, entries []memory.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No classifications in memory.")
		return
	}

	fmt.Fprintf(w, "%-20s %-14s %-14s %-5s %s\n", "TIME", "STAGE", "INTENT", "CONF", "REQUEST")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s %-14s %-14s %-5.2f %s\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.Stage,
			e.Signal.Intent,
			e.Signal.Confidence,
			truncate(e.Text, maxTextWidth),
		)
	}
	fmt.Fprintf(w, "\n%d entr%s.\n", len(entries), plural(len(entries), "y", "ies"))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
