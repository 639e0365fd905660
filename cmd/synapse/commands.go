package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"synapse/internal/analysis/indicator"
	"synapse/internal/app"
	"synapse/internal/config"
	"synapse/internal/gateway"
	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/series"
	"synapse/internal/strategy"
)

const defaultConfigPath = "configs/config.yaml"

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "synapse",
		Short:         "Six-layer signal evaluator for a single instrument",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $SYNAPSE_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newFetchCmd(&cfgPath))
	root.AddCommand(newEvaluateCmd())
	return root
}

// loadConfig resolves the config path from the flag, then SYNAPSE_CONFIG,
// then the default location. A missing default file falls back to built-in
// defaults; an explicitly named one must exist.
func loadConfig(flagPath string) (*config.Config, error) {
	path := strings.TrimSpace(flagPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SYNAPSE_CONFIG"))
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the strategy watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfgPath)
		},
	}
}

func runServe(ctx context.Context, cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	traceFile, err := openAppendFile(cfg.App.TracePath)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	if traceFile != nil {
		logger.SetTraceWriter(traceFile)
		defer func() {
			logger.SetTraceWriter(nil)
			traceFile.Close()
		}()
	}
	logger.Infof("config loaded (env=%s)", cfg.App.Env)

	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

func setupLogOutput(path string) (*os.File, error) {
	file, err := openAppendFile(path)
	if err != nil || file == nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

// openAppendFile returns nil for an empty path.
func openAppendFile(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func newFetchCmd(cfgPath *string) *cobra.Command {
	var (
		symbol    string
		timeframe string
		lookback  int
		out       string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Export recent closed bars to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tf, err := market.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			stack, err := gateway.NewSourceFromConfig(cfg.Market, nil)
			if err != nil {
				return err
			}
			defer stack.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			candles, err := stack.Source.FetchHistory(ctx, symbol, tf.SourceInterval, lookback)
			if err != nil {
				return fmt.Errorf("fetch %s %s: %w", symbol, tf.Key, err)
			}
			csv := market.BuildCSV(candles, market.CSVOptions{
				Symbol:         strings.ToUpper(symbol),
				Interval:       tf.SourceInterval,
				PricePrecision: market.PrecisionRaw,
			})
			if out == "" || out == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), csv)
				return err
			}
			if err := os.WriteFile(out, []byte(csv), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render(market.Candles(candles).Summary(tf.SourceInterval)))
			fmt.Fprintln(cmd.ErrOrStderr(), okStyle.Render("wrote "+out))
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "instrument symbol")
	cmd.Flags().StringVar(&timeframe, "timeframe", "1Min", "bar size ("+strings.Join(market.SupportedTimeframes(), ", ")+")")
	cmd.Flags().IntVar(&lookback, "lookback", 500, "number of closed bars")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (stdout when empty)")
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	var (
		csvPath      string
		index        int
		strategyPath string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the decision engine on bars from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := strategy.Default()
			if strategyPath != "" {
				loaded, err := strategy.LoadFile(strategyPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			f, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			defer f.Close()
			candles, meta, err := market.ParseCSV(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", csvPath, err)
			}
			snaps, err := indicator.Enrich(candles, cfg.Periods)
			if err != nil {
				return err
			}
			tfKey := meta.Interval
			if tf, err := market.ParseTimeframe(meta.Interval); err == nil {
				tfKey = tf.Key
			}
			s := series.Series{Symbol: meta.Symbol, Timeframe: tfKey, Snapshots: snaps}
			idx := index
			if idx < 0 {
				idx = s.Len() - 1
			}
			rec, err := series.Decide(s, idx, cfg)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"symbol":             s.Symbol,
					"decision_idx":       idx,
					"decision_timestamp": s.TimeAt(idx),
					"decision":           rec,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecord(s, idx, rec))
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file produced by `synapse fetch`")
	cmd.Flags().IntVar(&index, "index", -1, "bar index to decide on (default last)")
	cmd.Flags().StringVar(&strategyPath, "strategy", "", "strategy YAML (defaults when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}
