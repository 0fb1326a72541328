package main

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/javoxirone/bilagon-ai-bot/pkg/app"
)

// program adapts app.Run to the kardianos/service lifecycle.
type program struct {
	configPath string
}

func (p *program) Start(service.Service) error {
	go func() {
		err := app.Run(app.RunParams{
			ConfigPath: p.configPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "bilagon:", err)
			os.Exit(1)
		}
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	// app.Run exits on SIGTERM, which the service manager sends. Nothing
	// extra to tear down here.
	return nil
}

func newService(configPath string) (service.Service, error) {
	cfg := &service.Config{
		Name:        "bilagon",
		DisplayName: "Bilagon Telegram Bot",
		Description: "Telegram assistant bot with streaming LLM answers.",
		Arguments:   []string{"start"},
	}
	if configPath != "" {
		cfg.Arguments = append(cfg.Arguments, "--config", configPath)
	}
	return service.New(&program{configPath: configPath}, cfg)
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the system service",
	}

	var configPath string
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the bilagon service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(configPath)
				if err != nil {
					return err
				}
				if err := service.Control(svc, cmd.Use); err != nil {
					return fmt.Errorf("service %s: %w", cmd.Use, err)
				}
				fmt.Printf("Service %s: done\n", cmd.Use)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (used by the installed unit)",
		RunE: func(*cobra.Command, []string) error {
			svc, err := newService(configPath)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})

	return cmd
}
