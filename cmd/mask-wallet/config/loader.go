// Package config loads the daemon configuration: embedded defaults, then a
// config file, then MASK_* environment variables, then command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dimensiondev/mask-wallet-core/internal/constants"
	"github.com/dimensiondev/mask-wallet-core/internal/networks"
	"github.com/dimensiondev/mask-wallet-core/internal/securefile"
)

const (
	ConfigFileKey   = "config-file"
	VersionKey      = "version"
	HostKey         = "host"
	PortKey         = "port"
	NFTScanKeyKey   = "nftscan-api-key"
	PreferredRPCKey = "preferred-rpc"
)

// ServerSettings is the loopback listener.
type ServerSettings struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ChainSettings struct {
	PreferredRPC  string        `mapstructure:"preferred_rpc"`
	HeaderRefresh time.Duration `mapstructure:"header_refresh"`
}

type GasSettings struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheSize     int           `mapstructure:"cache_size"`
	HistoryBlocks uint64        `mapstructure:"history_blocks"`
}

type NFTScanSettings struct {
	APIKey          string            `mapstructure:"api_key"`
	VerifiedChainID uint64            `mapstructure:"verified_chain_id"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	MaxRetryDelay   time.Duration     `mapstructure:"max_retry_delay"`
	BaseURLs        map[string]string `mapstructure:"base_urls"`
}

type Config struct {
	Server   ServerSettings     `mapstructure:"server"`
	Chains   ChainSettings      `mapstructure:"chains"`
	Gas      GasSettings        `mapstructure:"gas"`
	NFTScan  NFTScanSettings    `mapstructure:"nftscan"`
	Networks []networks.Network `mapstructure:"networks"`

	// PrintVersion is set by --version.
	PrintVersion bool `mapstructure:"-"`
}

// BuildFlagSet declares the command line flags.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(constants.AppName, pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Path to a YAML config file. Skips the default search paths")
	fs.Bool(VersionKey, false, "If true, prints the version and quits")
	fs.String(HostKey, "", "Loopback address to listen on")
	fs.String(PortKey, "", "Port to listen on")
	fs.String(NFTScanKeyKey, "", "NFTScan API key")
	fs.String(PreferredRPCKey, "", "RPC name to prefer when a network lists several")
	return fs
}

// SearchPaths are the directories probed for config.yaml, in priority order.
func SearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", constants.AppName)
		if folder, err := securefile.EnvFolder(); err == nil && folder != "" {
			dir = filepath.Join(dir, folder)
		}
		paths = append(paths, dir)
	}
	return append(paths, "config", ".")
}

// Load parses args (without the program name) and builds the configuration.
func Load(args []string) (*Config, error) {
	if _, err := securefile.EnvFolder(); err != nil {
		return nil, err
	}

	fs := BuildFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v, err := buildViper(fs)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.PrintVersion, _ = fs.GetBool(VersionKey)

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func buildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, fmt.Errorf("read embedded config: %w", err)
	}

	if path, _ := fs.GetString(ConfigFileKey); path != "" {
		v.SetConfigFile(os.ExpandEnv(path))
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.host":          HostKey,
		"server.port":          PortKey,
		"nftscan.api_key":      NFTScanKeyKey,
		"chains.preferred_rpc": PreferredRPCKey,
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Normalize trims values and rejects listeners that are not loopback.
func (c *Config) Normalize() error {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Server.Port = strings.TrimSpace(c.Server.Port)

	switch strings.ToLower(c.Server.Host) {
	case "127.0.0.1", "localhost", "::1":
	default:
		ip := net.ParseIP(c.Server.Host)
		if ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("server.host %q is not a loopback address", c.Server.Host)
		}
	}

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("server.port %q is invalid", c.Server.Port)
	}

	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	for _, o := range c.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.AllowedOrigins = origins

	c.NFTScan.APIKey = strings.TrimSpace(c.NFTScan.APIKey)
	c.Chains.PreferredRPC = strings.TrimSpace(c.Chains.PreferredRPC)
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// NFTScanBaseURLs converts the configured host overrides to chain id keys.
func (c *Config) NFTScanBaseURLs() (map[uint64]string, error) {
	out := make(map[uint64]string, len(c.NFTScan.BaseURLs))
	for k, u := range c.NFTScan.BaseURLs {
		id, err := strconv.ParseUint(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("nftscan.base_urls: invalid chain id %q", k)
		}
		out[id] = strings.TrimRight(strings.TrimSpace(u), "/")
	}
	return out, nil
}
