// Package config loads hord's YAML configuration file and layers
// environment-variable overrides for RPC credentials on top, so
// secrets are never required to sit in the config file itself.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of operator-tunable parameters.
type Config struct {
	Network          string `yaml:"network"`
	DataDir          string `yaml:"data_dir"`
	RPCURL           string `yaml:"rpc_url"`
	RPCUser          string `yaml:"rpc_user"`
	RPCPassword      string `yaml:"rpc_password"`
	NetworkThreads   int    `yaml:"network_threads"`
	ActivationHeight uint32 `yaml:"activation_height"`
	MetricsAddr      string `yaml:"metrics_addr"`
}

const (
	envRPCUser     = "HORD_RPC_USER"
	envRPCPassword = "HORD_RPC_PASSWORD"

	// defaultActivationHeight is the first block height at which
	// inscriptions are possible on mainnet.
	defaultActivationHeight = 767430
)

// Default returns a Config populated with conservative defaults, to be
// overlaid by Load.
func Default() Config {
	return Config{
		Network:          "mainnet",
		DataDir:          "./data",
		RPCURL:           "http://127.0.0.1:8332",
		NetworkThreads:   4,
		ActivationHeight: defaultActivationHeight,
		MetricsAddr:      ":9332",
	}
}

// Load reads a YAML config file at path, applying environment
// variable overrides for RPC credentials afterward so they are never
// required in the file itself. A missing path is not an error; the
// defaults plus environment overrides are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if user := os.Getenv(envRPCUser); user != "" {
		cfg.RPCUser = user
	}
	if password := os.Getenv(envRPCPassword); password != "" {
		cfg.RPCPassword = password
	}

	if cfg.NetworkThreads < 1 {
		return Config{}, fmt.Errorf("config: network_threads must be >= 1, got %d", cfg.NetworkThreads)
	}

	return cfg, nil
}
