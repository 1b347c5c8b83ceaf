package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgesim/edgesim/engine/compiler"
	"github.com/edgesim/edgesim/engine/descriptor"
	"github.com/edgesim/edgesim/engine/simulator"
	"github.com/edgesim/edgesim/pkg/logger"
)

// NewDevCmd builds the `edgesim dev` command: compile the descriptor, start
// the simulator and serve until interrupted.
func NewDevCmd() *cobra.Command {
	devCmd := &cobra.Command{
		Use:   "dev",
		Short: "Run the simulator against a deployment descriptor",
		RunE:  runDev,
	}
	devCmd.Flags().StringP("config", "c", "wrangler.toml", "Path to the deployment descriptor")
	devCmd.Flags().IntP("port", "p", 0, "Override the descriptor's dev.port")
	return devCmd
}

func runDev(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	portOverride, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("failed to get port flag: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve descriptor path %s: %w", configPath, err)
	}
	d, err := descriptor.Load(absPath)
	if err != nil {
		return err
	}

	cfg, err := compiler.Compile(ctx, d, nil)
	if err != nil {
		return err
	}
	if err := compiler.ApplyAssetWorkaround(ctx, cfg); err != nil {
		return err
	}
	if portOverride != 0 {
		cfg.Port = portOverride
		if cfg.Host == "" {
			cfg.Host = "127.0.0.1"
		}
	}
	if cfg.Port == 0 {
		return fmt.Errorf("descriptor sets no dev.port and no --port override given; nothing to serve")
	}

	sim, err := simulator.New(ctx, cfg, simulator.WithBaseDir(filepath.Dir(absPath)))
	if err != nil {
		return err
	}
	defer func() {
		if err := sim.Dispose(ctx); err != nil {
			log.Error("failed to dispose simulator", "error", err)
		}
	}()

	log.Info("simulator running", "url", sim.BaseURL(), "workers", len(cfg.Workers))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
	return nil
}
