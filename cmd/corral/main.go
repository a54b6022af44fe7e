package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corral-dev/corral/pkg/api"
	"github.com/corral-dev/corral/pkg/config"
	"github.com/corral-dev/corral/pkg/lease"
	"github.com/corral-dev/corral/pkg/leasesvc"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/manager"
	"github.com/corral-dev/corral/pkg/metrics"
	"github.com/corral-dev/corral/pkg/reconciler"
	"github.com/corral-dev/corral/pkg/scheduler"
	"github.com/corral-dev/corral/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corral",
	Short: "Corral - control plane for business-process AI agents",
	Long: `Corral schedules and supervises AI agent runs across a fleet of
worker nodes. The control plane owns agent definitions, versions,
deployments and run state; workers pull leases over gRPC and execute
agent invocations in sandboxed child processes.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Corral version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
	serveCmd.Flags().String("config", "", "Path to server config file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Corral control plane",
	Long: `Start the control plane: the REST API, the gRPC lease service,
the dispatch scheduler and the reconciler, backed by an embedded bolt
database and Redis for leases.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadServer(configPath)
		if err != nil {
			return err
		}

		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
		metrics.SetVersion(Version)
		logger := log.WithComponent("main")

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
		metrics.RegisterComponent("storage", true, "bolt store open")

		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("redis at %s unreachable: %w", cfg.RedisAddr, err)
		}
		metrics.RegisterComponent("leases", true, "redis connected")

		mgr := manager.NewManager(store, lease.NewRedisManager(redisClient))
		defer mgr.Stop()
		sched := scheduler.NewScheduler(store)

		leaseLis, err := net.Listen("tcp", cfg.LeaseListen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.LeaseListen, err)
		}
		svc := leasesvc.NewService(mgr, sched)
		go func() {
			if err := svc.Serve(leaseLis); err != nil {
				logger.Error().Err(err).Msg("lease service stopped")
			}
		}()
		defer svc.Stop()
		logger.Info().Str("addr", cfg.LeaseListen).Msg("lease service listening")

		recon := reconciler.NewReconciler(mgr)
		recon.Start()
		defer recon.Stop()

		collector := metrics.NewCollector(store)
		collector.Start()
		defer collector.Stop()

		apiServer := api.NewServer(mgr, sched)
		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(cfg.APIListen); err != nil {
				errCh <- err
			}
		}()
		logger.Info().Str("addr", cfg.APIListen).Msg("api listening")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case err := <-errCh:
			return fmt.Errorf("api server: %w", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	},
}
