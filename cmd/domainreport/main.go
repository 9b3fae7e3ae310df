package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/MimoJanra/DomainReport/docs"
	"github.com/MimoJanra/DomainReport/internal/app"
	"github.com/MimoJanra/DomainReport/internal/config"
)

var (
	configPath string
	verbose    bool
	targetURL  string
	pretty     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "domainreport",
	Short:         "Composite domain reports: page speed, WHOIS, trust and uptime",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = app.NewLogger(cfg.Env, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <domain>",
	Short: "Analyse one domain and print the report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.NewAnalyzer(cfg, logger)
		report := a.Analyze(cmd.Context(), args[0], targetURL)

		enc := json.NewEncoder(cmd.OutOrStdout())
		if pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(report)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the monitor scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Error("failed to close app", zap.Error(err))
			}
		}()
		return a.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default config/local.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	analyzeCmd.Flags().StringVar(&targetURL, "url", "", "URL to analyse (default https://<domain>)")
	analyzeCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")

	rootCmd.AddCommand(analyzeCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
