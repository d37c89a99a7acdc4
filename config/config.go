// Package config loads SDK settings from the environment and an optional YAML
// file describing the network table.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pilacorp/go-didjwt-sdk/network"
)

// Default values
const (
	DefaultResolveTimeout    = 10 * time.Second
	DefaultVerifyConcurrency = 8
)

// Environment variable names
const (
	EnvNetworksFile      = "DIDJWT_NETWORKS_FILE"
	EnvResolveTimeout    = "DIDJWT_RESOLVE_TIMEOUT"
	EnvVerifyConcurrency = "DIDJWT_VERIFY_CONCURRENCY"

	// Per-network overrides, formatted with the upper-cased network name.
	EnvNetworkRPCURL   = "DIDJWT_%s_RPC_URL"
	EnvNetworkRegistry = "DIDJWT_%s_REGISTRY"
	EnvNetworkChainID  = "DIDJWT_%s_CHAIN_ID"
	EnvNetworkEndpoint = "DIDJWT_%s_ENDPOINT"
)

// Config is the resolved SDK configuration.
type Config struct {
	Networks          []network.Network `yaml:"networks"`
	ResolveTimeout    time.Duration     `yaml:"resolveTimeout"`
	VerifyConcurrency int               `yaml:"verifyConcurrency"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Networks:          network.Defaults(),
		ResolveTimeout:    DefaultResolveTimeout,
		VerifyConcurrency: DefaultVerifyConcurrency,
	}
}

// FromEnv builds a Config from the built-in defaults, the file named by
// DIDJWT_NETWORKS_FILE if set, and finally the individual env overrides.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

// FromFile loads the YAML file at path and applies the env overrides on top.
// DIDJWT_NETWORKS_FILE is ignored.
func FromFile(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return applyEnv(cfg, os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path, ok := lookup(EnvNetworksFile); ok && path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	return applyEnv(cfg, lookup)
}

func applyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup(EnvResolveTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvResolveTimeout, err)
		}
		cfg.ResolveTimeout = d
	}

	if v, ok := lookup(EnvVerifyConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid %s: %q", EnvVerifyConcurrency, v)
		}
		cfg.VerifyConcurrency = n
	}

	for i := range cfg.Networks {
		if err := applyNetworkEnv(&cfg.Networks[i], lookup); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func applyNetworkEnv(n *network.Network, lookup func(string) (string, bool)) error {
	key := envName(n.Name)

	if v, ok := lookup(fmt.Sprintf(EnvNetworkRPCURL, key)); ok && v != "" {
		n.RPCURL = v
	}
	if v, ok := lookup(fmt.Sprintf(EnvNetworkRegistry, key)); ok && v != "" {
		n.Registry = v
	}
	if v, ok := lookup(fmt.Sprintf(EnvNetworkEndpoint, key)); ok && v != "" {
		n.Endpoint = v
	}
	if v, ok := lookup(fmt.Sprintf(EnvNetworkChainID, key)); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id for network %s: %w", n.Name, err)
		}
		n.ChainID = id
	}
	return nil
}

// LoadFile reads a YAML configuration file. Missing scalar settings fall back
// to their defaults; the network list, when present, replaces the defaults.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := Default()
	if len(fileCfg.Networks) > 0 {
		cfg.Networks = fileCfg.Networks
	}
	if fileCfg.ResolveTimeout > 0 {
		cfg.ResolveTimeout = fileCfg.ResolveTimeout
	}
	if fileCfg.VerifyConcurrency > 0 {
		cfg.VerifyConcurrency = fileCfg.VerifyConcurrency
	}
	return cfg, nil
}

// Table builds the immutable network table from the configured networks.
func (c Config) Table() (*network.Table, error) {
	return network.NewTable(c.Networks...)
}

func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
