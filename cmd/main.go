package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/scitags/go-nflog/cmd/subcmd"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "nflogd",
		Short: "Receive packets logged by netfilter through NFLOG.",
		Long: "nflogd binds to an NFLOG group and prints every packet the kernel logs to it.\n" +
			"Packets are sent to a group by iptables/nftables rules with a `log group N` statement.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	confPath     string
	groupFlag    uint16
	logLevelFlag string
	logTimeFlag  bool
	logJSONFlag  bool
	logSrcFlag   bool

	builtCommit = "dev"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&confPath, "conf", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().Uint16Var(&groupFlag, "group", 0, "override the configured NFLOG group (0-65535)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "include timestamps in log records")
	rootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "emit log records as JSON")
	rootCmd.PersistentFlags().BoolVar(&logSrcFlag, "log-source", false, "include the source location in log records")

	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add the different sub-commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(manCmd)
	rootCmd.AddCommand(subcmd.RuleCmd)
}

func setupLogging() error {
	level, ok := logLevelMap[strings.ToLower(logLevelFlag)]
	if !ok {
		return fmt.Errorf("wrong log level %q", logLevelFlag)
	}

	opts := &slog.HandlerOptions{
		AddSource:   logSrcFlag,
		Level:       level,
		ReplaceAttr: logReplacements,
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logJSONFlag {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
