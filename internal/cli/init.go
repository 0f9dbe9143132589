package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andywolf/prompttoproduct/internal/cli/wizard"
	"github.com/andywolf/prompttoproduct/internal/config"
	"github.com/andywolf/prompttoproduct/internal/memory"
)

// configName is the config file name without extension.
const configName = ".p2p"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize project configuration",
	Long: `Initialize p2p configuration for the current project.

This creates a .p2p.yaml file with defaults that you can customize.

Example:
  p2p init
  p2p init --backend redis --redis-addr localhost:6379
  p2p init --interactive`,
	RunE: initProject,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("backend", memory.BackendFile, "Memory backend (file, redis, none)")
	initCmd.Flags().Int("capacity", memory.DefaultCapacity, "Number of classifications kept in memory")
	initCmd.Flags().String("redis-addr", "", "Redis address for the redis backend")
	initCmd.Flags().Int("max-errors", 3, "Stage failures allowed per run")
	initCmd.Flags().Bool("interactive", false, "Answer questions instead of using flags")
	initCmd.Flags().Bool("force", false, "Overwrite existing config")
}

func initProject(cmd *cobra.Command, args []string) error {
	configPath := filepath.Join(".", configName+".yaml")

	force, _ := cmd.Flags().GetBool("force")
	interactive, _ := cmd.Flags().GetBool("interactive")
	if _, err := os.Stat(configPath); err == nil && !force {
		if !interactive {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
		ok, err := wizard.ConfirmOverwrite(configPath)
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
		if !ok {
			return nil
		}
	}

	cfg := config.Default()
	cfg.Memory.Backend, _ = cmd.Flags().GetString("backend")
	cfg.Memory.Capacity, _ = cmd.Flags().GetInt("capacity")
	cfg.Memory.Redis.Addr, _ = cmd.Flags().GetString("redis-addr")
	cfg.Engine.MaxErrors, _ = cmd.Flags().GetInt("max-errors")

	if interactive {
		if err := wizard.PromptConfig(cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := writeConfig(configPath, cfg); err != nil {
		return err
	}

	printNextSteps(cmd.OutOrStdout(), configPath, cfg)
	return nil
}

const configHeader = `# p2p configuration
# Every key can be overridden with a P2P_ environment variable,
# e.g. P2P_MEMORY_BACKEND=none or P2P_ENGINE_MAX_ERRORS=5.

`

// writeConfig marshals cfg as YAML with a comment header.
func writeConfig(path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func printNextSteps(w io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(w, "Created %s\n\n", path)
	fmt.Fprintln(w, "Next steps:")
	step := 1
	if cfg.Memory.Backend == memory.BackendRedis && cfg.Memory.Redis.PasswordSecret == "" {
		fmt.Fprintf(w, "  %d. Set memory.redis.password_secret if your Redis needs a password\n", step)
		step++
	}
	fmt.Fprintf(w, "  %d. Run 'p2p run \"Create an epic for fraud detection\"'\n", step)
	fmt.Fprintf(w, "  %d. Inspect recent requests with 'p2p memory'\n", step+1)
}
