package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-ensemble/internal/engine"
	"github.com/rxtech-lab/argo-ensemble/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "ensemble",
		Usage:   "Backtest, weight and scan an ensemble of technical sub-models",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config. Defaults apply when empty.",
				Sources: cli.EnvVars("ENSEMBLE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "DuckDB file, overrides storage.path",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error, overrides log_level",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"o"},
				Usage:   fmt.Sprintf("Report format (%s, %s or %s)", formatTable, formatJSON, formatYAML),
				Value:   string(formatTable),
			},
		},
		Commands: append(actionCommands(),
			snapshotCommand(),
			serveCommand(),
			schemaCommand(),
			providersCommand(),
		),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// actionCommands builds one subcommand per dispatcher action.
func actionCommands() []*cli.Command {
	usage := map[engine.Action]string{
		engine.ActionBacktest:    "Walk-forward backtest of every model and rewrite of the model weights",
		engine.ActionScan:        "Scan the universe for signals and resolve the ACTIVE ones",
		engine.ActionSignals:     "List ACTIVE and recently resolved signals",
		engine.ActionMonitor:     "Re-price ACTIVE signals without writing",
		engine.ActionLeaderboard: "Rank the models by out-of-sample Sharpe",
		engine.ActionFullRun:     "Backtest, then scan with the new weights",
		engine.ActionAudit:       "Show the audit log",
		engine.ActionFeatures:    "Show the latest features, regime and votes of one symbol",
		engine.ActionCompare:     "Compare train and test metrics per model",
	}

	commands := make([]*cli.Command, 0, len(usage))

	for _, name := range engine.ValidActions() {
		commands = append(commands, &cli.Command{
			Name:  name,
			Usage: usage[engine.Action(name)],
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:    "symbols",
					Aliases: []string{"s"},
					Usage:   "Instruments, overrides the configured universe",
				},
				&cli.StringFlag{
					Name:  "symbol",
					Usage: "Instrument of the features action, filter of the signals action",
				},
				&cli.IntFlag{
					Name:  "limit",
					Usage: "Rows of the signals and audit actions",
				},
			},
			Action: runAction(name),
		})
	}

	return commands
}
