package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/anomredux/claude-relay/internal/domain"
	"github.com/anomredux/claude-relay/internal/render"
)

const defaultWidth = 72

func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Build the usage report once and print it",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "pretty", Usage: "render a terminal summary instead of JSON"},
			&cli.IntFlag{Name: "width", Usage: "summary width", Value: defaultWidth},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			resp := a.response(ctx)
			out := cmd.Root().Writer
			if cmd.Bool("pretty") {
				_, err := fmt.Fprintln(out, render.Summary(resp, cmd.Int("width")))
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
}

func BlocksCommand() *cli.Command {
	return &cli.Command{
		Name:  "blocks",
		Usage: "List 5-hour session blocks",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "hours", Usage: "how many hours back to look", Value: 24},
			&cli.BoolFlag{Name: "pretty", Usage: "render a table instead of JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Blocks never need the remote API or weather.
			cfg.API.Enabled = false
			cfg.Weather.Enabled = false
			cfg.Usage.Plan = "pro"

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			blocks := a.builder.Blocks(ctx, time.Duration(cmd.Int("hours"))*time.Hour)
			out := cmd.Root().Writer
			if cmd.Bool("pretty") {
				_, err := fmt.Fprintln(out, render.Blocks(blocks, now, a.loc))
				return err
			}

			type blockJSON struct {
				Start    time.Time `json:"start"`
				End      time.Time `json:"end"`
				Active   bool      `json:"active"`
				Messages int       `json:"messages"`
				Tokens   int       `json:"tokens"`
				CostUSD  float64   `json:"cost_usd"`
			}
			rows := make([]blockJSON, 0, len(blocks))
			for _, b := range blocks {
				st := domain.SummarizeSession(b.Entries)
				rows = append(rows, blockJSON{
					Start:    b.Start,
					End:      b.End,
					Active:   b.Active(now),
					Messages: st.Messages,
					Tokens:   st.TokensUsed(),
					CostUSD:  domain.Round(st.CostUSD, 4),
				})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
}
