package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vitwit/paylink"
	"github.com/vitwit/paylink/cache"
	"github.com/vitwit/paylink/logger"
	"github.com/vitwit/paylink/metrics"
	"github.com/vitwit/paylink/store"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
)

// app is the state shared by every subcommand, built before each run.
type app struct {
	cfg      *types.Config
	log      *logger.ZapLogger
	checkout *paylink.Checkout
	decimals *cache.BigCache
}

var (
	cfgFile   string
	storePath string
	logLevel  string
	jsonOut   bool

	cli app
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "paylink",
		Short:             "paylink - crypto point-of-sale payment links",
		Version:           paylink.Version,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "receipt database (default ~/.paylink/paylink.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON")

	rootCmd.AddCommand(chainsCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(payCmd())
	rootCmd.AddCommand(receiptCmd())
	rootCmd.AddCommand(posCmd())

	err := rootCmd.Execute()
	teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, types.StatusMessage(err))
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := utils.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if cfg.StorePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.StorePath = filepath.Join(home, ".paylink", "paylink.db")
	}

	log, err := logger.NewZapLogger(cfg.LogLevel, true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	st, err := store.NewBoltStore(cfg.StorePath)
	if err != nil {
		return err
	}

	decimals, err := cache.NewBigCache(cache.DefaultTTL)
	if err != nil {
		st.Close()
		return err
	}

	opts := []paylink.Option{
		paylink.WithLogger(log),
		paylink.WithDecimalsCache(decimals),
	}
	if cfg.EnableMetrics {
		rec, err := metrics.NewPrometheusRecorder(nil)
		if err != nil {
			st.Close()
			return err
		}
		opts = append(opts, paylink.WithMetrics(rec))
	}
	if cmd.Name() == "pay" {
		opts = append(opts, paylink.WithObserver(printProgress))
	}

	checkout, err := paylink.New(cfg, st, opts...)
	if err != nil {
		st.Close()
		return err
	}

	cli = app{cfg: cfg, log: log, checkout: checkout, decimals: decimals}
	return nil
}

// teardown runs after every command, failed ones included.
func teardown() {
	if cli.checkout == nil {
		return
	}
	if err := cli.checkout.Close(); err != nil {
		cli.log.Warn("close store", map[string]any{"error": err.Error()})
	}
	cli.decimals.Close()
	_ = cli.log.Sync()
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
