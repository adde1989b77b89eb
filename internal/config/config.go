// Package config loads the YAML configuration for the pnl-proof-host
// service: node/prover RPC endpoints, storage location, logging, and the
// run parameters the tag scanner and swap driver need (batch size, max
// indices, oracle coordinates).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig configures the RPC client for the chain-facing node.
type NodeConfig struct {
	RPCURL  string        `yaml:"rpc_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProverConfig configures the HTTP client for the external proving backend.
type ProverConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig configures the Badger-backed run/artifact store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig mirrors logging.Config's YAML shape so it round-trips
// straight through to logging.NewWithConfig.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// RunConfig bounds one tag-scan + aggregation run: the window walk, and
// the oracle coordinates every swap in the run prices against.
type RunConfig struct {
	BatchSize    uint64        `yaml:"batch_size"`
	MaxIndices   uint64        `yaml:"max_indices"`
	OracleAddr   string        `yaml:"oracle_addr"`
	AssetsSlot   string        `yaml:"assets_slot"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Config is the complete service configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Node    NodeConfig    `yaml:"node"`
	Prover  ProverConfig  `yaml:"prover"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Run     RunConfig     `yaml:"run"`
}

// Load reads and parses a YAML configuration file at path on top of
// Defaults(); fields the file omits keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Defaults returns a Config with the conservative fallbacks the server
// binary applies before CLI flags and the YAML file are layered on top.
func Defaults() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Node.Timeout = 30 * time.Second
	cfg.Prover.Timeout = 5 * time.Minute
	cfg.Storage.Path = "./data/pnlhost"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stdout"
	cfg.Run.BatchSize = 16
	cfg.Run.MaxIndices = 4096
	cfg.Run.PollInterval = time.Minute
	return cfg
}

// CLIFlags mirrors the subset of Config that the server binary lets an
// operator override on the command line, struct-tagged for go-flags. A
// zero value for any field means "no override, keep the YAML/default".
type CLIFlags struct {
	ConfigPath  string `short:"c" long:"config" description:"path to the YAML config file" default:"config.yaml"`
	Host        string `long:"host" description:"HTTP server bind host"`
	Port        int    `long:"port" description:"HTTP server bind port"`
	NodeRPCURL  string `long:"node-rpc" description:"chain-facing node RPC URL"`
	ProverURL   string `long:"prover-url" description:"proving backend base URL"`
	StoragePath string `long:"storage-path" description:"Badger database directory"`
	LogLevel    string `long:"log-level" description:"trace|debug|info|warn|error"`
	LogFormat   string `long:"log-format" description:"text|json"`
}

// ApplyOverrides layers any non-zero CLIFlags fields on top of cfg,
// giving the command line the final say over the YAML file.
func ApplyOverrides(cfg Config, flags CLIFlags) Config {
	if flags.Host != "" {
		cfg.Server.Host = flags.Host
	}
	if flags.Port != 0 {
		cfg.Server.Port = flags.Port
	}
	if flags.NodeRPCURL != "" {
		cfg.Node.RPCURL = flags.NodeRPCURL
	}
	if flags.ProverURL != "" {
		cfg.Prover.BaseURL = flags.ProverURL
	}
	if flags.StoragePath != "" {
		cfg.Storage.Path = flags.StoragePath
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
	return cfg
}
