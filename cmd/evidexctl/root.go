package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/evidex/internal/bootstrap"
	"github.com/kailas-cloud/evidex/internal/config"
	logpkg "github.com/kailas-cloud/evidex/internal/logger"
	"github.com/kailas-cloud/evidex/internal/version"
)

// cli holds the persistent flags shared by every subcommand.
type cli struct {
	configPath string
	env        string
	logLevel   string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "evidexctl",
		Short: "Ingest documents and retrieve evidence from an evidex corpus",
		Long: `evidexctl runs evidex operations in process against the configured backend.

Configuration is read from --config, or from config/<ENV>.yaml when unset.
An optional .env file is loaded first.`,
		Version:      version.String(),
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default config/<env>.yaml)")
	root.PersistentFlags().StringVar(&c.env, "env", "", "environment name (default $ENV or local)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		c.ingestCmd(),
		c.getCmd(),
		c.deleteCmd(),
		c.searchCmd(),
		c.evidenceCmd(),
		c.statsCmd(),
		c.validateCmd(),
		c.sectionsCmd(),
		versionCmd(),
	)
	return root
}

// open loads configuration and wires an App. Callers close it.
func (c *cli) open(ctx context.Context) (*bootstrap.App, config.Config, error) {
	_ = godotenv.Load()

	env := c.env
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, config.Config{}, err
	}

	logger, err := logpkg.NewLogger(env, c.logLevel)
	if err != nil {
		return nil, config.Config{}, err
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, config.Config{}, err
	}
	return app, cfg, nil
}

// run opens the App, calls fn and closes the App.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App, cfg config.Config) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, cfg, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(ctx, app, cfg)
}

func (c *cli) printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
