package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MarketLedger/internal/config"
	"MarketLedger/internal/logger"
	"MarketLedger/internal/metrics"
	"MarketLedger/internal/model"
	"MarketLedger/internal/notifier"
	"MarketLedger/internal/query"
	"MarketLedger/internal/scheduler"
	"MarketLedger/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errBatchFailed makes the process exit non-zero without printing twice.
var errBatchFailed = errors.New("batch finished with failures")

var (
	cfgPath string
	cfg     *config.Config
	log     *zap.SugaredLogger
	syncLog func()
)

var rootCmd = &cobra.Command{
	Use:           "ledger",
	Short:         "Daily indicator ledger for NSE/BSE equities",
	Long:          `Fetches daily bars, computes moving averages, 52-week and all-time flags and the T-Score, and stores one row per symbol and day.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		log, syncLog, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
}

func init() {
	def := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		def = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", def, "Path to the YAML config file")

	rootCmd.AddCommand(setupCmd, dropCmd, processCmd, queryCmd, listCmd, statsCmd, scheduleCmd)

	dropCmd.Flags().Bool("yes", false, "Confirm dropping the table")
	processCmd.Flags().StringP("exchange", "e", "", "Exchange (NSE, BSE); defaults to pipeline.exchange")
	processCmd.Flags().IntP("bars", "b", 0, "Daily bars to fetch per symbol; defaults to the configured count")
	queryCmd.Flags().StringP("date", "d", "", "Trading day, YYYY-MM-DD")
	_ = queryCmd.MarkFlagRequired("date")
}

// withStore opens the configured gateway for the duration of fn.
func withStore(ctx context.Context, fn func(store.Gateway) error) error {
	gw, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			log.Warnw("Close store failed", "error", err)
		}
	}()
	return fn(gw)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the stock_data table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(gw store.Gateway) error {
			if err := gw.Setup(cmd.Context()); err != nil {
				return err
			}
			log.Infow("Schema ready", "driver", cfg.Database.Driver, "table", store.TableName)
			return nil
		})
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the stock_data table and every stored row",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("refusing to drop without --yes")
		}
		return withStore(cmd.Context(), func(gw store.Gateway) error {
			if err := gw.Drop(cmd.Context()); err != nil {
				return err
			}
			log.Infow("Table dropped", "driver", cfg.Database.Driver, "table", store.TableName)
			return nil
		})
	},
}

var processCmd = &cobra.Command{
	Use:   "process SYMBOL...",
	Short: "Fetch, compute and store indicator rows for the given symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exchange, _ := cmd.Flags().GetString("exchange")
		if exchange == "" {
			exchange = cfg.Pipeline.Exchange
		}
		bars, _ := cmd.Flags().GetInt("bars")
		if bars <= 0 {
			bars = cfg.BarCount()
		}

		p, err := buildProcessor(cmd.Context(), cfg, log, metrics.New())
		if err != nil {
			return err
		}
		defer p.release()

		res := p.Process(cmd.Context(), args, exchange, bars)
		fmt.Fprint(cmd.OutOrStdout(), notifier.FormatBatchReport(res))
		if !res.OK() {
			return errBatchFailed
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query SYMBOL",
	Short: "Print the stored row for one symbol and day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("date")
		date, err := model.ParseDate(raw)
		if err != nil {
			return fmt.Errorf("bad --date %q: %w", raw, err)
		}
		return query.WithReader(cmd.Context(), cfg, log, func(r *query.Reader) error {
			row, err := r.Get(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			if row == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "not found: %s\n", model.RowKey(args[0], date))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), notifier.FormatRow(row))
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored symbols",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(gw store.Gateway) error {
			symbols, err := gw.ListSymbols(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range symbols {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row and symbol counts and the stored date range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(gw store.Gateway) error {
			st, err := gw.Stats(cmd.Context())
			if err != nil {
				return err
			}
			symbols, err := gw.ListSymbols(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), notifier.FormatStats(st, symbols))
			return nil
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-process the configured watch list on a cron schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		p, err := buildProcessor(ctx, cfg, log, m)
		if err != nil {
			return err
		}
		defer p.release()

		var sender scheduler.Sender
		if cfg.Telegram.BotToken != "" {
			sender = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		}
		sched := scheduler.NewScheduler(ctx, p, sender, scheduler.Job{
			Symbols:  cfg.Schedule.Symbols,
			Exchange: cfg.Pipeline.Exchange,
			Bars:     cfg.BarCount(),
		}, log)
		if err := sched.Register(cfg.Schedule.Cron); err != nil {
			return err
		}

		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Errorw("Metrics endpoint failed", "error", err)
			}
		}()

		sched.Start()
		if os.Getenv("RUN_ON_START") == "true" {
			log.Infow("RUN_ON_START enabled, processing watch list now")
			sched.RunAsync()
		}
		log.Infow("MarketLedger is running, press Ctrl+C to stop", "cron", cfg.Schedule.Cron)

		<-ctx.Done()
		log.Infow("Shutdown signal received, stopping")
		sched.Stop()
		return nil
	},
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if syncLog != nil {
		syncLog()
	}
	if err != nil {
		if !errors.Is(err, errBatchFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
