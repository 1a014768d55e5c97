// Package config loads and validates the proxy's TOML configuration.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	toml "github.com/pelletier/go-toml/v2"
)

// Paths probed in order when --config / CONFIG_PATH is not given.
var configSearchPaths = []string{
	"/etc/llm-proxy/config.toml",
	"configs/config.toml",
}

const (
	defaultHost        = "0.0.0.0"
	defaultPort        = 8000
	defaultPathPrefix  = "/proxy"
	defaultBodyMax     = 10 << 20
	defaultProvider    = "deepseek"
	defaultTimeoutMin  = 10
	defaultIdleConns   = 100
	defaultMetricsPath = "/metrics"
)

// CLI defines the flags and environment variables Kong parses at startup.
type CLI struct {
	Config   string           `short:"c" help:"Path to TOML config file." env:"CONFIG_PATH"`
	Host     string           `help:"Listen host (overrides config)." env:"HOST"`
	Port     int              `short:"p" help:"Listen port (overrides config)." env:"PORT"`
	BaseURL  string           `help:"Upstream base URL (overrides config)." env:"UPSTREAM_BASE_URL"`
	LogLevel string           `help:"Log level: debug|info|warn|error (overrides config)." env:"LOG_LEVEL"`
	Version  kong.VersionFlag `short:"V" help:"Print version and exit."`
}

// Config aggregates every section of the TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Provider ProviderConfig `toml:"provider"`
	Upstream UpstreamConfig `toml:"upstream"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // set by Load once resolved
}

// ServerConfig controls the listening side of the proxy.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // zero selects the default 8000; TOML has no unset marker for integers
	PathPrefix   string          `toml:"path_prefix"`
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig caps request admission per client IP.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ProviderConfig names the upstream provider and its model admission policy.
type ProviderConfig struct {
	Name          string   `toml:"name"`
	AllowedModels []string `toml:"allowed_models"` // empty means every model is admitted
}

// UpstreamConfig describes the provider endpoint and its connection pool.
type UpstreamConfig struct {
	BaseURL         string `toml:"base_url"`
	TimeoutMinutes  int    `toml:"timeout_minutes"`
	IdleConnections int    `toml:"idle_connections"`
}

// AuthConfig holds client-side credential settings.
type AuthConfig struct {
	ClientKeys []string `toml:"client_keys"` // empty means any non-empty credential passes
}

// LogConfig selects log verbosity and output encoding.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig toggles the Prometheus endpoint and names its route.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load resolves the config file (explicit flag, then the search paths) and
// decodes it strictly so misspelled keys fail fast. CLI flags overlay the
// file's values before validation; defaults and URL normalization run last.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig(configSearchPaths...)
	}
	if path == "" {
		return nil, fmt.Errorf("config: none of the search paths exist (%v); pass --config", configSearchPaths)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cli.overlay(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	cfg.normalize()
	return &cfg, nil
}

// overlay applies non-zero CLI flags over file-provided values.
func (cli *CLI) overlay(c *Config) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.BaseURL != "" {
		c.Upstream.BaseURL = cli.BaseURL
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if err := c.Upstream.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Provider.validate(); err != nil {
		return err
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	return c.validateMetricsPath()
}

func (c *UpstreamConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("upstream.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.base_url must use http or https; got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream.base_url has no host; got %q", c.BaseURL)
	}
	if c.TimeoutMinutes < 0 {
		return fmt.Errorf("upstream.timeout_minutes must be non-negative; got %d", c.TimeoutMinutes)
	}
	if c.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.IdleConnections)
	}
	return nil
}

func (c *ServerConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be 0-65535; got %d", c.Port)
	}
	if c.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.BodyMaxBytes)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.RateLimit.RequestsPerSecond)
	}
	if p := c.PathPrefix; p != "" {
		if p[0] != '/' {
			return fmt.Errorf("server.path_prefix must start with '/'; got %q", p)
		}
		if len(p) > 1 && strings.HasSuffix(p, "/") {
			return fmt.Errorf("server.path_prefix must not end with '/'; got %q", p)
		}
	}
	return nil
}

func (c *ProviderConfig) validate() error {
	for _, m := range c.AllowedModels {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("provider.allowed_models contains an empty entry")
		}
	}
	return nil
}

func (c *LogConfig) validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Format)
	}
	return nil
}

// validateMetricsPath rejects a metrics path that would shadow the proxy
// prefix or the health routes. Checked only when metrics are enabled.
func (c *Config) validateMetricsPath() error {
	if !c.Metrics.Enabled || c.Metrics.Path == "" {
		return nil
	}
	p := c.Metrics.Path
	if p[0] != '/' {
		return fmt.Errorf("metrics.path must start with '/'; got %q", p)
	}
	prefix := c.Server.PathPrefix
	if prefix == "" {
		prefix = defaultPathPrefix
	}
	for _, reserved := range []string{prefix, "/healthz", "/status"} {
		if p == reserved || strings.HasPrefix(p, reserved+"/") {
			return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
		}
	}
	return nil
}

// setDefaults fills zero-valued fields. An explicit zero in the file is
// indistinguishable from an omitted key, so port = 0 also selects 8000.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.PathPrefix == "" {
		c.Server.PathPrefix = defaultPathPrefix
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = defaultBodyMax
	}
	if c.Provider.Name == "" {
		c.Provider.Name = defaultProvider
	}
	if c.Upstream.TimeoutMinutes == 0 {
		c.Upstream.TimeoutMinutes = defaultTimeoutMin
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = defaultIdleConns
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
}

// normalize rewrites the upstream base URL into the canonical form used for
// building outbound URLs: the scheme is upgraded to https and trailing slashes
// are trimmed, so request URLs concatenate as <base><path>.
func (c *Config) normalize() {
	base := c.Upstream.BaseURL
	if strings.HasPrefix(base, "http://") {
		base = "https://" + strings.TrimPrefix(base, "http://")
	}
	c.Upstream.BaseURL = strings.TrimRight(base, "/")
}

// findConfig returns the first path that exists on disk, or empty string.
func findConfig(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the listen address, bracketing IPv6 hosts.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Timeout returns the absolute deadline applied to each proxied request,
// including the time spent streaming the response body.
func (c *UpstreamConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// WarnPermissions logs when the resolved config file is group- or
// world-accessible. Client keys live in this file, so 0600 is expected.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	perm := info.Mode().Perm()
	if perm&0o077 == 0 {
		return
	}
	logger.Warn("config file is readable by group/others; consider chmod 600",
		"path", c.filePath,
		"mode", fmt.Sprintf("%04o", perm),
	)
}
