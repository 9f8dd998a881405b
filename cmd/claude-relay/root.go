package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/anomredux/claude-relay/internal/config"
	"github.com/anomredux/claude-relay/internal/domain"
)

const (
	configFlag    = "config"
	planFlag      = "plan"
	hostFlag      = "host"
	portFlag      = "port"
	noAPIFlag     = "no-api"
	locationFlag  = "location"
	dataDirFlag   = "data-dir"
	timezoneFlag  = "timezone"
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"
)

func RootCommand() *cli.Command {
	return &cli.Command{
		Name:            "claude-relay",
		Usage:           "Serve Claude Code usage metrics to a desk display",
		Version:         version,
		HideHelpCommand: true,
		DefaultCommand:  "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configFlag,
				Usage: "config file path",
				Value: config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  planFlag,
				Usage: fmt.Sprintf("plan type (%s, auto); auto detects from OAuth/settings", strings.Join(domain.Plans(), ", ")),
			},
			&cli.StringFlag{
				Name:  hostFlag,
				Usage: "listen address",
			},
			&cli.IntFlag{
				Name:  portFlag,
				Usage: "listen port (default 8265)",
			},
			&cli.BoolFlag{
				Name:  noAPIFlag,
				Usage: "disable the Anthropic usage API; use JSONL only",
			},
			&cli.StringFlag{
				Name:  locationFlag,
				Usage: "city name for weather (e.g. 'London'); auto-detected via GeoIP if omitted",
			},
			&cli.StringFlag{
				Name:  dataDirFlag,
				Usage: "Claude Code projects directory",
			},
			&cli.StringFlag{
				Name:  timezoneFlag,
				Usage: "timezone for daily totals and the clock (e.g. Asia/Seoul)",
			},
			&cli.StringFlag{
				Name:  logLevelFlag,
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  logFormatFlag,
				Usage: "console or json",
			},
		},
		Commands: []*cli.Command{
			ServeCommand(),
			ReportCommand(),
			BlocksCommand(),
			VersionCommand(),
		},
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String(configFlag))
	if err != nil {
		return cfg, err
	}
	if cmd.IsSet(planFlag) {
		cfg.Usage.Plan = cmd.String(planFlag)
	}
	if cmd.IsSet(hostFlag) {
		cfg.Server.Host = cmd.String(hostFlag)
	}
	if cmd.IsSet(portFlag) {
		cfg.Server.Port = cmd.Int(portFlag)
	}
	if cmd.Bool(noAPIFlag) {
		cfg.API.Enabled = false
	}
	if cmd.IsSet(locationFlag) {
		cfg.Weather.Location = cmd.String(locationFlag)
	}
	if cmd.IsSet(dataDirFlag) {
		cfg.Usage.DataDir = cmd.String(dataDirFlag)
	}
	if cmd.IsSet(timezoneFlag) {
		cfg.Usage.Timezone = cmd.String(timezoneFlag)
	}
	if cmd.IsSet(logLevelFlag) {
		cfg.Log.Level = cmd.String(logLevelFlag)
	}
	if cmd.IsSet(logFormatFlag) {
		cfg.Log.Format = cmd.String(logFormatFlag)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version and exit",
		Action: func(_ context.Context, cmd *cli.Command) error {
			fmt.Fprintln(cmd.Root().Writer, "claude-relay", version)
			return nil
		},
	}
}
