package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/javoxirone/bilagon-ai-bot/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("Configuration OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("output")
			return runInitWizard(out)
		},
	}
	cmd.Flags().StringP("output", "o", "bilagon.yaml", "Where to write the configuration")
	return cmd
}

// runInitWizard collects the minimum viable configuration and writes a
// commented YAML file.
func runInitWizard(out string) error {
	var (
		botToken  string
		openaiKey string
		mode      string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather.").
				EchoMode(huh.EchoModePassword).
				Validate(notEmpty("token")).
				Value(&botToken),
			huh.NewInput().
				Title("OpenAI API key").
				EchoMode(huh.EchoModePassword).
				Validate(notEmpty("API key")).
				Value(&openaiKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Update transport").
				Options(
					huh.NewOption("Long polling (no public URL needed)", "polling"),
					huh.NewOption("Webhook (requires HTTPS endpoint)", "webhook"),
				).
				Value(&mode),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	content := fmt.Sprintf(`version: "1"

telegram:
  token: %q
  mode: %q

openai:
  api_key: %q

store:
  path: data/bilagon.db

stream:
  divide_threshold: 4096
  flush_cadence: 30

gateway:
  bind: 127.0.0.1:8080

log:
  level: info
  format: json
`, botToken, mode, openaiKey)

	if err := os.MkdirAll(filepath.Dir(out), 0o700); err != nil && filepath.Dir(out) != "." {
		return err
	}
	if err := os.WriteFile(out, []byte(content), 0o600); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
