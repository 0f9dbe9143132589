package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/stages"
	"github.com/andywolf/prompttoproduct/internal/workflow"
)

// ErrRunFailed is returned when a run ends in the Failed status so the
// process exits non-zero.
var ErrRunFailed = errors.New("run failed")

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Classify a request and drive it through the workflow",
	Long: `Classify a request and drive it through the workflow.

The prompt is taken from the arguments, or read from stdin when no
arguments are given. Artifacts are written under output.dir/<run id>/.

Examples:
  p2p run "Create an epic for fraud detection"
  p2p run --json "validate all specifications"
  echo "implement the payments api" | p2p run --render`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Print the final result as JSON")
	runCmd.Flags().Bool("render", false, "Render the generated artifact as styled markdown")
	runCmd.Flags().Duration("timeout", 0, "Abort the run after this duration (0 = no limit)")
	runCmd.Flags().String("output-dir", "", "Directory for finalized artifacts")
	_ = viper.BindPFlag("output.dir", runCmd.Flags().Lookup("output-dir"))
}

func runPrompt(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	result := a.engine.Run(ctx, prompt)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		printResult(out, result)
		if render, _ := cmd.Flags().GetBool("render"); render {
			if err := renderArtifact(out, result); err != nil {
				return err
			}
		}
	}

	if result.Status == domain.StatusFailed {
		return fmt.Errorf("%w: %s", ErrRunFailed, result.LastError)
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// readPrompt joins args, falling back to stdin.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" || prompt == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return "", fmt.Errorf("a prompt is required")
	}
	return prompt, nil
}

func printResult(w io.Writer, r workflow.FinalResult) {
	refs := make([]string, 0, len(r.Signal.References))
	for _, ref := range r.Signal.References {
		refs = append(refs, ref.ID)
	}
	path := make([]string, len(r.Path))
	for i, s := range r.Path {
		path[i] = string(s)
	}

	fmt.Fprintf(w, "Run:        %s\n", r.RunID)
	fmt.Fprintf(w, "Intent:     %s (confidence %.2f)\n", r.Signal.Intent, r.Signal.Confidence)
	fmt.Fprintf(w, "Domains:    %s\n", orNone(r.Signal.DomainNames()))
	fmt.Fprintf(w, "References: %s\n", orNone(refs))
	fmt.Fprintf(w, "Path:       %s\n", strings.Join(path, " -> "))
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	fmt.Fprintf(w, "Errors:     %d\n", r.ErrorCount)
	if r.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", r.LastError)
	}
	if out, ok := r.StageOutputs[domain.StageValidate]; ok && out.OK {
		if score, ok := out.Payload[stages.KeyScore].(float64); ok {
			fmt.Fprintf(w, "Score:      %.2f\n", score)
		}
	}
	if out, ok := r.StageOutputs[domain.StageFinalize]; ok && out.OK {
		if files, ok := out.Payload[stages.KeyFiles].([]string); ok {
			sorted := append([]string(nil), files...)
			sort.Strings(sorted)
			for _, f := range sorted {
				fmt.Fprintf(w, "Wrote:      %s\n", f)
			}
		}
	}
	fmt.Fprintf(w, "Duration:   %s\n", r.Duration.Round(time.Millisecond))
}

func renderArtifact(w io.Writer, r workflow.FinalResult) error {
	var md string
	for _, stage := range []domain.Stage{domain.StageGenerate, domain.StageCodeGen} {
		if out, ok := r.StageOutputs[stage]; ok && out.OK {
			if s, ok := out.Payload[stages.KeyMarkdown].(string); ok && s != "" {
				md = s
				break
			}
		}
	}
	if md == "" {
		return nil
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	styled, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	fmt.Fprint(w, "\n"+styled)
	return nil
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
