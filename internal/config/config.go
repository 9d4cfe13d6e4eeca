// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Supported browser driver backends.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Suite() SuiteConfig
	Timeouts() TimeoutConfig
	Credentials() CredentialsConfig
	Database() DatabaseConfig

	// Browser Setters
	SetBrowserDriver(string)
	SetBrowserHeadless(bool)

	// Suite Setters
	SetSuiteBaseURL(string)
	SetSuiteTags(string)
	SetSuiteFormat(string)
	SetSuitePaths([]string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	SuiteCfg       SuiteConfig       `mapstructure:"suite" yaml:"suite"`
	TimeoutsCfg    TimeoutConfig     `mapstructure:"timeouts" yaml:"timeouts"`
	CredentialsCfg CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	DatabaseCfg    DatabaseConfig    `mapstructure:"database" yaml:"database"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Suite() SuiteConfig             { return c.SuiteCfg }
func (c *Config) Timeouts() TimeoutConfig        { return c.TimeoutsCfg }
func (c *Config) Credentials() CredentialsConfig { return c.CredentialsCfg }
func (c *Config) Database() DatabaseConfig       { return c.DatabaseCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserDriver(d string) { c.BrowserCfg.Driver = strings.ToLower(strings.TrimSpace(d)) }
func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }

func (c *Config) SetSuiteBaseURL(u string)     { c.SuiteCfg.BaseURL = strings.TrimRight(u, "/") }
func (c *Config) SetSuiteTags(t string)        { c.SuiteCfg.Tags = t }
func (c *Config) SetSuiteFormat(f string)      { c.SuiteCfg.Format = f }
func (c *Config) SetSuitePaths(paths []string) { c.SuiteCfg.Paths = paths }

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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser session the suite drives.
type BrowserConfig struct {
	// Driver selects the automation backend: "chromedp" or "rod".
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	WindowWidth     int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int           `mapstructure:"window_height" yaml:"window_height"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	Debug           bool          `mapstructure:"debug" yaml:"debug"`
}

// SuiteConfig drives the Gherkin runner.
type SuiteConfig struct {
	BaseURL      string   `mapstructure:"base_url" yaml:"base_url"`
	Paths        []string `mapstructure:"paths" yaml:"paths"`
	Tags         string   `mapstructure:"tags" yaml:"tags"`
	Format       string   `mapstructure:"format" yaml:"format"`
	Strict       bool     `mapstructure:"strict" yaml:"strict"`
	Concurrency  int      `mapstructure:"concurrency" yaml:"concurrency"`
	ArtifactsDir string   `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
}

// TimeoutConfig is the named timeout ladder shared by all page objects.
type TimeoutConfig struct {
	VeryShort     time.Duration `mapstructure:"very_short" yaml:"very_short"`
	Short         time.Duration `mapstructure:"short" yaml:"short"`
	Medium        time.Duration `mapstructure:"medium" yaml:"medium"`
	MediumLong    time.Duration `mapstructure:"medium_long" yaml:"medium_long"`
	Long          time.Duration `mapstructure:"long" yaml:"long"`
	VeryLong      time.Duration `mapstructure:"very_long" yaml:"very_long"`
	ExtraLong     time.Duration `mapstructure:"extra_long" yaml:"extra_long"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// CredentialsConfig holds the account used by login steps. Values normally
// come from the environment, never from a committed config file.
type CredentialsConfig struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"-"`
	// RegisteredEmail is an existing account used by password reset flows.
	// Empty means Email.
	RegisteredEmail string `mapstructure:"registered_email" yaml:"registered_email"`
}

// DatabaseConfig holds the connection for the run history store. An empty
// URL disables history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cyberrank-e2e")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.debug", false)

	// -- Suite --
	v.SetDefault("suite.base_url", "https://www.cyberrank.ai")
	v.SetDefault("suite.paths", []string{"features"})
	v.SetDefault("suite.tags", "")
	v.SetDefault("suite.format", "pretty")
	v.SetDefault("suite.strict", true)
	v.SetDefault("suite.concurrency", 1)
	v.SetDefault("suite.artifacts_dir", "~/.cyberrank-e2e/artifacts")

	// -- Timeouts --
	v.SetDefault("timeouts.very_short", "1s")
	v.SetDefault("timeouts.short", "5s")
	v.SetDefault("timeouts.medium", "10s")
	v.SetDefault("timeouts.medium_long", "15s")
	v.SetDefault("timeouts.long", "30s")
	v.SetDefault("timeouts.very_long", "60s")
	v.SetDefault("timeouts.extra_long", "150s")
	v.SetDefault("timeouts.poll_interval", "500ms")
	v.SetDefault("timeouts.retry_attempts", 3)
	v.SetDefault("timeouts.retry_delay", "1s")

	// -- Credentials --
	v.SetDefault("credentials.email", "")
	v.SetDefault("credentials.password", "")
	v.SetDefault("credentials.registered_email", "")

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper unmarshals, normalizes and validates a configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("credentials.email", "CYBERRANK_USER_EMAIL")
	_ = v.BindEnv("credentials.password", "CYBERRANK_USER_PASSWORD")
	_ = v.BindEnv("credentials.registered_email", "CYBERRANK_REGISTERED_EMAIL")
	_ = v.BindEnv("database.url", "CYBERRANK_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// normalize expands user paths and canonicalizes enum-like values.
func (c *Config) normalize() error {
	c.BrowserCfg.Driver = strings.ToLower(strings.TrimSpace(c.BrowserCfg.Driver))
	c.SuiteCfg.BaseURL = strings.TrimRight(c.SuiteCfg.BaseURL, "/")
	if c.CredentialsCfg.RegisteredEmail == "" {
		c.CredentialsCfg.RegisteredEmail = c.CredentialsCfg.Email
	}

	var err error
	if c.SuiteCfg.ArtifactsDir, err = homedir.Expand(c.SuiteCfg.ArtifactsDir); err != nil {
		return fmt.Errorf("suite.artifacts_dir: %w", err)
	}
	if c.LoggerCfg.LogFile, err = homedir.Expand(c.LoggerCfg.LogFile); err != nil {
		return fmt.Errorf("logger.log_file: %w", err)
	}
	if c.BrowserCfg.ExecPath, err = homedir.Expand(c.BrowserCfg.ExecPath); err != nil {
		return fmt.Errorf("browser.exec_path: %w", err)
	}
	for i, p := range c.SuiteCfg.Paths {
		if c.SuiteCfg.Paths[i], err = homedir.Expand(p); err != nil {
			return fmt.Errorf("suite.paths[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	switch c.BrowserCfg.Driver {
	case DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("browser.driver must be %q or %q, got %q", DriverChromedp, DriverRod, c.BrowserCfg.Driver)
	}
	if c.BrowserCfg.WindowWidth <= 0 || c.BrowserCfg.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be positive integers")
	}
	if c.SuiteCfg.BaseURL == "" {
		return fmt.Errorf("suite.base_url is a required configuration field")
	}
	if c.SuiteCfg.Concurrency != 1 {
		// Scenarios share one browser session.
		return fmt.Errorf("suite.concurrency must be 1, got %d", c.SuiteCfg.Concurrency)
	}
	if err := c.TimeoutsCfg.Validate(); err != nil {
		return fmt.Errorf("timeouts configuration invalid: %w", err)
	}
	return nil
}

// Validate checks that the ladder is increasing and that polling fits inside
// the shortest timeout.
func (t *TimeoutConfig) Validate() error {
	ladder := []struct {
		name string
		d    time.Duration
	}{
		{"very_short", t.VeryShort},
		{"short", t.Short},
		{"medium", t.Medium},
		{"medium_long", t.MediumLong},
		{"long", t.Long},
		{"very_long", t.VeryLong},
		{"extra_long", t.ExtraLong},
	}
	for i, step := range ladder {
		if step.d <= 0 {
			return fmt.Errorf("%s must be a positive duration", step.name)
		}
		if i > 0 && step.d < ladder[i-1].d {
			return fmt.Errorf("%s (%s) must not be shorter than %s (%s)", step.name, step.d, ladder[i-1].name, ladder[i-1].d)
		}
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if t.PollInterval >= t.VeryShort {
		return fmt.Errorf("poll_interval (%s) must be shorter than very_short (%s)", t.PollInterval, t.VeryShort)
	}
	if t.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	if t.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	return nil
}
