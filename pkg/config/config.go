package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5s"
// as well as bare integers, which are taken as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig configures the control-plane process.
type ServerConfig struct {
	// DataDir holds the bolt database.
	DataDir string `yaml:"dataDir"`

	// APIListen is the REST listen address.
	APIListen string `yaml:"apiListen"`

	// LeaseListen is the gRPC lease service listen address.
	LeaseListen string `yaml:"leaseListen"`

	// RedisAddr is the Redis used for leases and queue connectors.
	RedisAddr string `yaml:"redisAddr"`

	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJson"`
}

// DefaultServerConfig returns the server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		DataDir:     "/var/lib/corral",
		APIListen:   ":8080",
		LeaseListen: ":9090",
		RedisAddr:   "localhost:6379",
		LogLevel:    "info",
		LogJSON:     true,
	}
}

// QueueConnectorConfig tunes how the worker consumes input queues.
type QueueConnectorConfig struct {
	// PrefetchCount is how many messages a receive may claim at once.
	PrefetchCount int `yaml:"prefetchCount"`

	// MaxConcurrentCalls bounds leases processed in parallel.
	MaxConcurrentCalls int `yaml:"maxConcurrentCalls"`

	// MaxWaitTime bounds the blocking wait for an input message.
	MaxWaitTime Duration `yaml:"maxWaitTime"`

	// MaxDeliveryCount is the poison threshold.
	MaxDeliveryCount int `yaml:"maxDeliveryCount"`
}

// AgentRuntimeConfig sets invocation defaults an agent's own budget can
// tighten but not loosen.
type AgentRuntimeConfig struct {
	// DefaultModel is used when an agent's model profile names none.
	DefaultModel       string  `yaml:"defaultModel"`
	DefaultTemperature float64 `yaml:"defaultTemperature"`
	MaxTokens          int     `yaml:"maxTokens"`
	MaxDurationSeconds int     `yaml:"maxDurationSeconds"`
}

// ProviderConfig selects the model provider for the executor.
type ProviderConfig struct {
	// Provider is "openai", "azure" or "anthropic".
	Provider string `yaml:"provider"`

	// APIKeyEnv names the environment variable holding the key. Keys
	// never live in config files.
	APIKeyEnv string `yaml:"apiKeyEnv"`

	// Endpoint and APIVersion apply to Azure AI Foundry.
	Endpoint   string `yaml:"endpoint"`
	APIVersion string `yaml:"apiVersion"`
}

// APIKey resolves the provider key from the environment.
func (p ProviderConfig) APIKey() string {
	env := p.APIKeyEnv
	if env == "" {
		env = "CORRAL_LLM_API_KEY"
	}
	return os.Getenv(env)
}

// WorkerConfig configures a worker process.
type WorkerConfig struct {
	NodeID          string            `yaml:"nodeId"`
	ControlPlaneURL string            `yaml:"controlPlaneUrl"`
	LeaseAddr       string            `yaml:"leaseAddr"`
	RedisAddr       string            `yaml:"redisAddr"`
	Slots           int               `yaml:"slots"`
	Metadata        map[string]string `yaml:"metadata"`

	// ExecutorBin is the sandbox child binary. Empty means the
	// corral-executor on PATH.
	ExecutorBin string `yaml:"executorBin"`

	Queue    QueueConnectorConfig `yaml:"queue"`
	Agent    AgentRuntimeConfig   `yaml:"agent"`
	Provider ProviderConfig       `yaml:"provider"`

	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJson"`
}

// DefaultWorkerConfig returns the worker defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ControlPlaneURL: "http://localhost:8080",
		LeaseAddr:       "localhost:9090",
		RedisAddr:       "localhost:6379",
		Slots:           8,
		Queue: QueueConnectorConfig{
			PrefetchCount:      16,
			MaxConcurrentCalls: 5,
			MaxWaitTime:        Duration(5 * time.Second),
			MaxDeliveryCount:   3,
		},
		Agent: AgentRuntimeConfig{
			DefaultModel:       "gpt-4o",
			DefaultTemperature: 0.7,
			MaxTokens:          4000,
			MaxDurationSeconds: 60,
		},
		Provider: ProviderConfig{Provider: "openai"},
		LogLevel:  "info",
		LogJSON:   true,
	}
}

// LoadServer reads a server config file over the defaults. A missing path
// returns the defaults unchanged.
func LoadServer(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadInto(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWorker reads a worker config file over the defaults.
func LoadWorker(path string) (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()
	if err := loadInto(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.NodeID == "" {
		host, err := os.Hostname()
		if err != nil {
			return cfg, fmt.Errorf("node id not set and hostname unavailable: %w", err)
		}
		cfg.NodeID = host
	}
	return cfg, nil
}

func loadInto(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
