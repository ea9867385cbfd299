package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/blueprint/internal/config"
	"github.com/rcliao/blueprint/internal/events"
	"github.com/rcliao/blueprint/internal/logging"
	"github.com/rcliao/blueprint/internal/mcp"
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/service"
	"github.com/rcliao/blueprint/internal/storage"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Working-day scheduler for architecture proposals",
	Long: `blueprint builds proposals out of objectives and tasks and schedules them
on working days, skipping weekends and holidays.

Run without arguments to serve JSON-RPC over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		cfg = loaded

		logger, err = logging.New(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve JSON-RPC over stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "blueprint.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(calendarCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newServer wires storage, scheduler and services from the loaded config.
func newServer() (*mcp.MCPServer, error) {
	cal, err := cfg.BuildCalendar()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.SchedulerOptions()
	if err != nil {
		return nil, err
	}

	memStorage := storage.NewMemoryStorage()
	scheduler := schedule.New(cal, schedule.WithOptions(opts))
	proposalService := service.NewProposalService(memStorage, scheduler, events.NewBus(), logger)
	searchService := service.NewSearchService(memStorage)

	return mcp.NewMCPServer(proposalService, searchService, logger), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	server, err := newServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("serving JSON-RPC on stdio")
	transport := mcp.NewMCPTransport(server, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	if err := transport.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("transport error: %w", err)
	}
	return nil
}
