package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/memory"
	"github.com/andywolf/prompttoproduct/internal/routing"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show memory and routing status",
	Long: `Show the state of the request memory: backend, size against
capacity, the time of the last classification and how many remembered
requests were routed to each stage.

Examples:
  p2p status
  p2p status --json`,
	Args: cobra.NoArgs,
	RunE: checkStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "Print status as JSON")
}

// statusReport summarizes persisted activity.
type statusReport struct {
	Backend        string                         `json:"backend"`
	MemorySize     int                            `json:"memory_size"`
	MemoryCapacity int                            `json:"memory_capacity"`
	LastActivity   time.Time                      `json:"last_activity,omitempty"`
	EntryStages    map[domain.Stage]int           `json:"entry_stages"`
	Intents        map[domain.Intent]int          `json:"intents"`
	Routing        map[domain.Intent]domain.Stage `json:"routing"`
}

func checkStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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

	report := buildStatus(cfg.Memory.Backend, store)
	report.Routing = routing.NewRouter(&cfg.Routing).EntryTable()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printStatus(cmd.OutOrStdout(), report)
	return nil
}

func buildStatus(backend string, store *memory.Store) statusReport {
	r := statusReport{
		Backend:        backend,
		MemorySize:     store.Len(),
		MemoryCapacity: store.Cap(),
		EntryStages:    make(map[domain.Stage]int),
		Intents:        make(map[domain.Intent]int),
	}
	if last, ok := store.Last(); ok {
		r.LastActivity = last.Timestamp
	}
	for _, e := range store.Recent(0) {
		r.EntryStages[e.Stage]++
		r.Intents[e.Signal.Intent]++
	}
	return r
}

func printStatus(w io.Writer, r statusReport) {
	fmt.Fprintf(w, "Backend:  %s\n", r.Backend)
	fmt.Fprintf(w, "Memory:   %d/%d entries\n", r.MemorySize, r.MemoryCapacity)
	if r.LastActivity.IsZero() {
		fmt.Fprintln(w, "Last:     never")
	} else {
		fmt.Fprintf(w, "Last:     %s\n", r.LastActivity.Format(time.RFC3339))
	}
	if len(r.Routing) > 0 {
		fmt.Fprintln(w, "\nRouting:")
		intents := make([]string, 0, len(r.Routing))
		for i := range r.Routing {
			intents = append(intents, string(i))
		}
		sort.Strings(intents)
		for _, i := range intents {
			fmt.Fprintf(w, "  %-14s -> %s\n", i, r.Routing[domain.Intent(i)])
		}
	}
	if len(r.EntryStages) == 0 {
		return
	}

	fmt.Fprintln(w, "\nRouted to:")
	stages := make([]string, 0, len(r.EntryStages))
	for s := range r.EntryStages {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)
	for _, s := range stages {
		fmt.Fprintf(w, "  %-14s %d\n", s, r.EntryStages[domain.Stage(s)])
	}

	fmt.Fprintln(w, "\nIntents:")
	intents := make([]string, 0, len(r.Intents))
	for i := range r.Intents {
		intents = append(intents, string(i))
	}
	sort.Strings(intents)
	for _, i := range intents {
		fmt.Fprintf(w, "  %-14s %d\n", i, r.Intents[domain.Intent(i)])
	}
}
