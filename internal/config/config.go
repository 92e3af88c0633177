// File: internal/config/config.go

// Package config defines the wirectl configuration schema, its defaults and
// validation. Values come from a config file, environment variables and
// flags, all merged through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full wirectl configuration tree.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Driver DriverConfig `mapstructure:"driver" yaml:"driver"`
	Proxy  ProxyConfig  `mapstructure:"proxy" yaml:"proxy"`
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
}

// ServerConfig describes the remote end commands go to.
type ServerConfig struct {
	URL               string        `mapstructure:"url" yaml:"url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Proxy             string        `mapstructure:"proxy" yaml:"proxy"`
}

// DriverConfig describes a locally managed WebDriver server binary.
type DriverConfig struct {
	Kind         string        `mapstructure:"kind" yaml:"kind"`
	Path         string        `mapstructure:"path" yaml:"path"`
	Port         int           `mapstructure:"port" yaml:"port"`
	LogPath      string        `mapstructure:"log_path" yaml:"log_path"`
	StartTimeout time.Duration `mapstructure:"start_timeout" yaml:"start_timeout"`
	Args         []string      `mapstructure:"args" yaml:"args"`
}

// ProxyConfig configures the wiretap proxy subcommand.
type ProxyConfig struct {
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the terminal colors for each log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// OutputConfig controls where command results land.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Server --
	v.SetDefault("server.url", "http://localhost:4444/wd/hub")
	v.SetDefault("server.timeout", "60s")
	v.SetDefault("server.requests_per_second", 0.0)
	v.SetDefault("server.ignore_tls_errors", false)

	// -- Driver --
	v.SetDefault("driver.kind", "chromedriver")
	v.SetDefault("driver.path", "")
	v.SetDefault("driver.port", 0)
	v.SetDefault("driver.start_timeout", "20s")

	// -- Proxy --
	v.SetDefault("proxy.listen", "127.0.0.1:8080")
	v.SetDefault("proxy.verbose", false)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "wirectl")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Output --
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.format", "text")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal; anything else is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for values commonly set per shell.
	v.BindEnv("server.url", "WIRECTL_SERVER_URL")
	v.BindEnv("driver.path", "WIRECTL_DRIVER_PATH")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is a required configuration field")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be a positive duration")
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("server.requests_per_second must not be negative")
	}
	if err := c.Driver.Validate(); err != nil {
		return fmt.Errorf("driver configuration invalid: %w", err)
	}
	if c.Output.Format != "text" && c.Output.Format != "json" {
		return fmt.Errorf("output.format must be %q or %q", "text", "json")
	}
	return nil
}

// Validate checks the driver settings. A driver section without a path is
// valid; it means no locally managed driver.
func (d *DriverConfig) Validate() error {
	switch d.Kind {
	case "chromedriver", "geckodriver":
	default:
		return fmt.Errorf("kind must be %q or %q", "chromedriver", "geckodriver")
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if d.Path != "" && d.StartTimeout <= 0 {
		return fmt.Errorf("start_timeout must be a positive duration")
	}
	return nil
}
