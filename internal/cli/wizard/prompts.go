// Package wizard provides interactive prompts for CLI commands.
package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/andywolf/prompttoproduct/internal/config"
	"github.com/andywolf/prompttoproduct/internal/memory"
)

// PromptConfig asks for the memory backend, capacity and error budget and
// writes the answers into cfg.
func PromptConfig(cfg *config.Config) error {
	backend := cfg.Memory.Backend
	capacity := strconv.Itoa(cfg.Memory.Capacity)
	maxErrors := strconv.Itoa(cfg.Engine.MaxErrors)
	outputDir := cfg.Output.OutputDir

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Memory backend").
				Description("Where recent classifications are kept between runs").
				Options(
					huh.NewOption("JSONL file in .p2p/", memory.BackendFile),
					huh.NewOption("Redis list", memory.BackendRedis),
					huh.NewOption("In-process only", memory.BackendNone),
				).
				Value(&backend),

			huh.NewInput().
				Title("Memory capacity").
				Value(&capacity).
				Validate(validatePositive),

			huh.NewInput().
				Title("Stage failures allowed per run").
				Value(&maxErrors).
				Validate(validatePositive),

			huh.NewInput().
				Title("Artifact output directory").
				Value(&outputDir),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}

	if backend == memory.BackendRedis {
		if err := promptRedis(&cfg.Memory.Redis); err != nil {
			return err
		}
	}

	cfg.Memory.Backend = backend
	cfg.Memory.Capacity, _ = parsePositive(capacity)
	cfg.Engine.MaxErrors, _ = parsePositive(maxErrors)
	if strings.TrimSpace(outputDir) != "" {
		cfg.Output.OutputDir = strings.TrimSpace(outputDir)
	}
	return nil
}

func promptRedis(rc *memory.RedisConfig) error {
	addr := rc.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	secret := rc.PasswordSecret

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Redis address").
				Value(&addr).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("redis address is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Password secret (optional)").
				Description("env:NAME or a Secret Manager secret name").
				Value(&secret),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}

	rc.Addr = strings.TrimSpace(addr)
	rc.PasswordSecret = strings.TrimSpace(secret)
	return nil
}

// ConfirmOverwrite asks before replacing an existing config file.
func ConfirmOverwrite(path string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite it?", path)).
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func validatePositive(s string) error {
	_, err := parsePositive(s)
	return err
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("enter a whole number")
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be greater than zero")
	}
	return n, nil
}
