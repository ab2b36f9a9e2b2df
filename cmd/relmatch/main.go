package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"relmatch/internal/config"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:           "relmatch",
		Short:         "Match relationships against expected (start, type, end) shapes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := setupLogger(verbose)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			if err := config.LoadEnv(); err != nil {
				zap.S().Debugf("No .env loaded: %v", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newExportCmd())

	err := rootCmd.Execute()
	_ = zap.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogger(verbose bool) (*zap.Logger, error) {
	var zapCfg zap.Config
	if verbose {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	// stdout carries command results
	zapCfg.OutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			zap.S().Info("Received shutdown signal...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
