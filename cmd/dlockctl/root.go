package main

import (
	"github.com/spf13/cobra"

	"dlock-service/internal/config"
	"dlock-service/internal/logger"
	"dlock-service/pkg/client"
)

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	server     string
	verbose    bool

	api *client.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "dlockctl",
		Short:         "Inspect and drive dlock-service locks",
		Long:          "Acquire, release, renew and inspect distributed locks through the dlock-service HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.connect()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ./config/config.yaml)")
	flags.StringVar(&c.server, "server", "", "service base URL, overrides client.base_url")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log client retries and breaker changes")

	root.AddCommand(
		newAcquireCmd(c),
		newReleaseCmd(c),
		newRenewCmd(c),
		newStatusCmd(c),
		newListCmd(c),
		newEventsCmd(c),
	)

	return root
}

func (c *cli) connect() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.server != "" {
		cfg.Client.BaseURL = c.server
	}

	level := "error"
	if c.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	c.api = client.New(client.Config{
		BaseURL: cfg.Client.BaseURL,
		Timeout: cfg.Client.Timeout,
		Retry: client.RetryConfig{
			MaxAttempts: cfg.Client.Retry.MaxAttempts,
			WaitTime:    cfg.Client.Retry.WaitTime,
			MaxWaitTime: cfg.Client.Retry.MaxWaitTime,
		},
		CB: client.CBConfig{
			MaxRequests:  cfg.Client.CB.MaxRequests,
			Interval:     cfg.Client.CB.Interval,
			Timeout:      cfg.Client.CB.Timeout,
			FailureRatio: cfg.Client.CB.FailureRatio,
		},
	}, log.Named("client").Logger)

	return nil
}
