package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corral-dev/corral/pkg/config"
	"github.com/corral-dev/corral/pkg/executor"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corral-worker",
	Short: "Corral worker node runtime",
	Long: `Run a Corral worker: register with the control plane, pull run
leases over gRPC and execute agent invocations in sandboxed child
processes.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadWorker(configPath)
		if err != nil {
			return err
		}

		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
		logger := log.WithNodeID(cfg.NodeID)

		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("redis at %s unreachable: %w", cfg.RedisAddr, err)
		}

		exec := executor.NewExecutor(executor.Config{
			BinPath: cfg.ExecutorBin,
			Env:     executorEnv(cfg.Provider),
		})
		pipeline := worker.NewPipeline(redisClient, exec, worker.PipelineConfig{
			MaxDeliveryCount:          cfg.Queue.MaxDeliveryCount,
			ReceiveTimeout:            cfg.Queue.MaxWaitTime.Std(),
			Prefetch:                  cfg.Queue.PrefetchCount,
			DefaultModel:              cfg.Agent.DefaultModel,
			DefaultTemperature:        cfg.Agent.DefaultTemperature,
			DefaultMaxTokens:          cfg.Agent.MaxTokens,
			DefaultMaxDurationSeconds: cfg.Agent.MaxDurationSeconds,
		})

		w, err := worker.NewWorker(worker.Config{
			NodeID:              cfg.NodeID,
			ControlPlaneURL:     cfg.ControlPlaneURL,
			LeaseAddr:           cfg.LeaseAddr,
			Slots:               cfg.Slots,
			MaxConcurrentLeases: int64(cfg.Queue.MaxConcurrentCalls),
			Metadata:            cfg.Metadata,
		}, pipeline)
		if err != nil {
			return err
		}
		if err := w.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("draining and shutting down")
		w.Stop()
		return nil
	},
}

func init() {
	rootCmd.Flags().String("config", "", "Path to worker config file")
}

// executorEnv forwards provider settings to the child process.
func executorEnv(p config.ProviderConfig) []string {
	env := []string{
		"CORRAL_LLM_PROVIDER=" + p.Provider,
		"CORRAL_LLM_API_KEY=" + p.APIKey(),
	}
	if p.Endpoint != "" {
		env = append(env, "CORRAL_LLM_ENDPOINT="+p.Endpoint)
	}
	if p.APIVersion != "" {
		env = append(env, "CORRAL_LLM_API_VERSION="+p.APIVersion)
	}
	return env
}
