package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yashs662/holodeck/internal/api"
	"github.com/yashs662/holodeck/internal/config"
	"github.com/yashs662/holodeck/internal/logger"
	"github.com/yashs662/holodeck/internal/stores"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		flags      config.Flags
	)

	cmd := &cobra.Command{
		Use:          "holodeck-server",
		Short:        "Serve the holodeck simulation API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigFromPath(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := flags.Apply(cfg); err != nil {
				return fmt.Errorf("applying flags: %w", err)
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the server config file")
	cmd.Flags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug mode with detailed logging")
	cmd.Flags().StringVarP(&flags.Address, "address", "a", "", "address to listen on, overrides the config file")
	cmd.Flags().StringVar(&flags.LogFile, "log-file", "", "log file path, overrides the config file")

	return cmd
}

func run(cfg *config.Config) error {
	logger.Init(cfg)
	defer logger.Close()

	store := stores.NewSimulationStore()
	logger.Info("Store initialized")

	server := api.NewServer(cfg, store)

	// Channel to listen for OS interrupt signals for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	logger.Info("Warp 6, Engage!")

	select {
	case err := <-errCh:
		if err != nil {
			logger.Errorf("Failed to start the server: %v", err)
		}
		return err
	case <-stop:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	logger.Info("Server exiting gracefully")
	return nil
}
