// Package cli wires the ghostgate-server command line.
package cli

import (
	"fmt"

	"github.com/driftlock/ghostgate/internal/config"
	"github.com/driftlock/ghostgate/internal/logger"
	"github.com/driftlock/ghostgate/server"
	"github.com/spf13/cobra"
)

var (
	configPath string
	addr       string
	storeKind  string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "ghostgate-server",
	Short: "Ghostgate - anonymous fingerprint auth server",
	Long: `Ghostgate authenticates anonymous browser clients by device
fingerprint instead of a username, issuing short-lived nonce session
credentials and pending link-nonce handshakes.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr = addr
		}
		if cmd.Flags().Changed("store") {
			cfg.Store = storeKind
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
		}

		if err := logger.Init(logger.Config{
			Level:    logger.ParseLevel(cfg.LogLevel),
			FilePath: cfg.LogFile,
			Console:  cfg.LogConsole,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Close()

		srv, err := server.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				logger.Error("error closing server", logger.F("error", err))
			}
		}()

		logger.Info("ghostgate server starting",
			logger.F("addr", cfg.Addr),
			logger.F("store", cfg.Store),
			logger.F("nonce_ttl", cfg.NonceTTL.Std().String()))
		return srv.Start(cfg.Addr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	rootCmd.Flags().StringVar(&storeKind, "store", "memory", "Store backend: memory, sqlite or postgres")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
