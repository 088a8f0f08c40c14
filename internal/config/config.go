package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Concurrency bounds for endpoint probing.
const (
	DefaultConcurrency = 16
	MinConcurrency     = 1
	MaxConcurrency     = 128
)

// Config holds all configuration for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Checker   CheckerConfig   `mapstructure:"checker"`
	Chainlist ChainlistConfig `mapstructure:"chainlist"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration for the results API.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// CheckerConfig holds settings related to the RPC probing process.
type CheckerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RPCTimeout     time.Duration `mapstructure:"rpc_timeout"`
	DNSTimeout     time.Duration `mapstructure:"dns_timeout"`
	WebSocket      bool          `mapstructure:"websocket"`
	SkipExisting   bool          `mapstructure:"skip_existing"`
	ChainIDs       []int64       `mapstructure:"chain_ids"`
}

// ChainlistConfig holds configuration for the chain directory source.
type ChainlistConfig struct {
	URL     string        `mapstructure:"url"`
	File    string        `mapstructure:"file"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OutputConfig holds settings for persisted results.
type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	MergedFile string `mapstructure:"merged_file"`
	DryRun     bool   `mapstructure:"dry_run"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// FlagBindings maps config keys to command-line flag names.
var FlagBindings = map[string]string{
	"checker.concurrency":   "concurrency",
	"checker.skip_existing": "skip-existing",
	"checker.websocket":     "websocket",
	"checker.chain_ids":     "chains",
	"chainlist.url":         "chainlist-url",
	"chainlist.file":        "chainlist-file",
	"output.dir":            "out",
	"output.dry_run":        "dry-run",
	"server.port":           "port",
	"logger.level":          "log-level",
	"metrics.textfile":      "metrics-textfile",
}

// Load reads configuration from file, environment variables and the given flags.
// Only flags present in flags are bound; flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "chainlist-prober")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("checker.concurrency", DefaultConcurrency)
	v.SetDefault("checker.connect_timeout", "3s")
	v.SetDefault("checker.rpc_timeout", "10s")
	v.SetDefault("checker.dns_timeout", "5s")
	v.SetDefault("checker.websocket", false)
	v.SetDefault("checker.skip_existing", false)
	v.SetDefault("checker.chain_ids", []int64{})
	v.SetDefault("chainlist.url", "https://chainid.network/chains.json")
	v.SetDefault("chainlist.file", "")
	v.SetDefault("chainlist.timeout", "15s")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.merged_file", "all.json")
	v.SetDefault("output.dry_run", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.textfile", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("CHAINLIST_PROBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetConcurrency returns the configured concurrency clamped to [MinConcurrency, MaxConcurrency].
func (c CheckerConfig) GetConcurrency() int {
	return ClampConcurrency(c.Concurrency)
}

// ClampConcurrency clamps n to [MinConcurrency, MaxConcurrency].
func ClampConcurrency(n int) int {
	if n < MinConcurrency {
		return MinConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

func (c CheckerConfig) GetConnectTimeout() time.Duration {
	return orDefault(c.ConnectTimeout, 3*time.Second)
}

func (c CheckerConfig) GetRPCTimeout() time.Duration {
	return orDefault(c.RPCTimeout, 10*time.Second)
}

func (c CheckerConfig) GetDNSTimeout() time.Duration {
	return orDefault(c.DNSTimeout, 5*time.Second)
}

func (c ChainlistConfig) GetTimeout() time.Duration {
	return orDefault(c.Timeout, 15*time.Second)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
