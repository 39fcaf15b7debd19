package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rxtech-lab/argo-ensemble/internal/backtest"
	"github.com/rxtech-lab/argo-ensemble/internal/config"
	"github.com/rxtech-lab/argo-ensemble/internal/engine"
	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/internal/metrics"
	"github.com/rxtech-lab/argo-ensemble/internal/server"
	"github.com/rxtech-lab/argo-ensemble/internal/storage"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// app holds everything a command needs. close releases the store and the provider.
type app struct {
	cfg      config.Config
	log      *logger.Logger
	provider provider.Provider
	store    *storage.DuckDBStore
	metrics  *metrics.Recorder
	engine   *engine.Engine
}

func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if db := cmd.String("db"); db != "" {
		cfg.Storage.Path = db
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, cfg.Validate()
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	p, err := provider.NewMarketDataProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewDuckDBStore(cfg.Storage.Path, log)
	if err != nil {
		closeProvider(p)

		return nil, err
	}

	if err := store.Initialize(); err != nil {
		store.Close()
		closeProvider(p)

		return nil, err
	}

	rec := metrics.New()

	return &app{
		cfg:      cfg,
		log:      log,
		provider: p,
		store:    store,
		metrics:  rec,
		engine:   engine.New(cfg, p, store, log, rec),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close store", zap.Error(err))
	}

	closeProvider(a.provider)
	_ = a.log.Sync()
}

// closeProvider closes providers that hold a resource, like the parquet reader.
func closeProvider(p provider.Provider) {
	if closer, ok := p.(io.Closer); ok {
		_ = closer.Close()
	}
}

func runAction(name string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		params := engine.Params{
			Symbols: upper(cmd.StringSlice("symbols")),
			Symbol:  strings.ToUpper(strings.TrimSpace(cmd.String("symbol"))),
			Limit:   int(cmd.Int("limit")),
		}

		if name == string(engine.ActionBacktest) || name == string(engine.ActionFullRun) {
			total := len(params.Symbols)
			if total == 0 {
				total = len(a.cfg.Symbols())
			}

			bar := newProgressBar(total, "backtesting")
			a.engine.Harness().SetCallbacks(progressCallbacks(bar))

			defer bar.Finish()
		}

		report := a.engine.Dispatch(ctx, name, params)

		if err := render(os.Stdout, format(cmd.String("format")), report); err != nil {
			return err
		}

		if !report.OK {
			return cli.Exit("", 1)
		}

		return nil
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Freeze the universe into Parquet files for offline backtests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Aliases:  []string{"d"},
				Usage:    "Output directory, usable as provider.dir with provider.type=parquet",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "symbols",
				Aliases: []string{"s"},
				Usage:   "Instruments, overrides the configured universe",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			p, err := provider.NewMarketDataProvider(cfg.Provider)
			if err != nil {
				return err
			}
			defer closeProvider(p)

			symbols := upper(cmd.StringSlice("symbols"))
			if len(symbols) == 0 {
				symbols = cfg.Symbols()
			}

			bar := newProgressBar(len(symbols), "fetching")
			defer bar.Finish()

			result, err := marketdata.Snapshot(ctx, p, symbols, cmd.String("dir"), marketdata.FetchOptions{
				Interval: cfg.ParsedInterval(),
				Limit:    cfg.BarLimit,
				MinBars:  cfg.Backtest.MinBars,
				Workers:  cfg.Workers,
				Timeout:  cfg.RequestTimeout,
				OnFetched: func(string, error) {
					_ = bar.Add(1)
				},
			}, log)
			if err != nil {
				return err
			}

			for symbol, fetchErr := range result.Failed {
				log.Warn("Not in snapshot", zap.String("symbol", symbol), zap.Error(fetchErr))
			}

			return renderSnapshot(os.Stdout, result)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the actions and the metrics over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: ":8080",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			srv := server.NewServer(a.engine, a.metrics.Handler(), a.log)
			if err := srv.Start(cmd.String("addr")); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()

			return srv.Stop()
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the config file",
		Action: func(_ context.Context, _ *cli.Command) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}

			fmt.Println(schema)

			return nil
		},
	}
}

func providersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List the market data providers",
		Action: func(_ context.Context, cmd *cli.Command) error {
			infos := make([]provider.ProviderInfo, 0)

			for _, name := range provider.GetSupportedProviders() {
				info, err := provider.GetProviderInfo(name)
				if err != nil {
					return err
				}

				infos = append(infos, info)
			}

			return renderProviders(os.Stdout, format(cmd.String("format")), infos)
		},
	}
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// progressCallbacks advances the bar once per instrument, fetched or not.
func progressCallbacks(bar *progressbar.ProgressBar) backtest.Callbacks {
	return backtest.Callbacks{
		OnFetched: func(_ string, err error) {
			if err != nil {
				_ = bar.Add(1)
			}
		},
		OnEvaluated: func(string, error) {
			_ = bar.Add(1)
		},
	}
}

func upper(symbols []string) []string {
	var out []string

	for _, symbol := range symbols {
		if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
			out = append(out, symbol)
		}
	}

	return out
}
