/*
Package cli loads the proxy's configuration from command-line flags, environment variables, and
an optional YAML file.

Sources are consulted in order of precedence: an explicitly set flag wins over the environment,
the environment wins over the configuration file, and the file wins over built-in defaults.

# Examples

	config := cli.NewConfig()
	config.RegisterCommandLineFlags(flag.CommandLine)
	flag.Parse()
	if err := config.Load(flag.CommandLine); err != nil {
		panic(err)
	}

A configuration file uses the flag names as keys:

	host: 0.0.0.0
	port: 8081
	vendor-url: http://gmapi.azurewebsites.net/
	timeout: 5s
	max-transactions: 1024
	log-level: debug
*/
package cli

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/pkg/adapter/gm"
)

// Environment variable names used by [Config.Load].
const (
	EnvHost            = "SMARTCAR_PROXY_HOST"
	EnvPort            = "SMARTCAR_PROXY_PORT"
	EnvVendorURL       = "SMARTCAR_VENDOR_URL"
	EnvTimeout         = "SMARTCAR_PROXY_TIMEOUT"
	EnvMaxTransactions = "SMARTCAR_MAX_TRANSACTIONS"
	EnvLogLevel        = "SMARTCAR_LOG_LEVEL"
	EnvVerbose         = "SMARTCAR_VERBOSE"
	EnvTlsCert         = "SMARTCAR_PROXY_TLS_CERT"
	EnvTlsKey          = "SMARTCAR_PROXY_TLS_KEY"
	EnvMetrics         = "SMARTCAR_PROXY_METRICS"
	EnvConfig          = "SMARTCAR_PROXY_CONFIG"
)

// Flag names registered by [Config.RegisterCommandLineFlags]. Configuration files use the same
// names as keys.
const (
	FlagHost            = "host"
	FlagPort            = "port"
	FlagVendorURL       = "vendor-url"
	FlagTimeout         = "timeout"
	FlagMaxTransactions = "max-transactions"
	FlagLogLevel        = "log-level"
	FlagVerbose         = "verbose"
	FlagCert            = "cert"
	FlagTlsKey          = "tls-key"
	FlagMetrics         = "metrics"
	FlagConfig          = "config"
)

const (
	DefaultHost            = "localhost"
	DefaultPort            = 8081
	DefaultVendorURL       = gm.DefaultBaseURL
	DefaultTimeout         = 10 * time.Second
	DefaultMaxTransactions = 32767
	DefaultLogLevel        = "info"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the proxy server settings.
type Config struct {
	Host            string
	Port            int
	VendorURL       string
	Timeout         time.Duration
	MaxTransactions int
	LogLevel        string
	Verbose         bool
	CertFilename    string
	KeyFilename     string
	Metrics         bool
	ConfigFilename  string
}

// NewConfig returns a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		VendorURL:       DefaultVendorURL,
		Timeout:         DefaultTimeout,
		MaxTransactions: DefaultMaxTransactions,
		LogLevel:        DefaultLogLevel,
		Metrics:         true,
	}
}

func (c *Config) RegisterCommandLineFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Host, FlagHost, c.Host, "Proxy server `hostname`. Defaults to $"+EnvHost+".")
	fs.IntVar(&c.Port, FlagPort, c.Port, "`Port` to listen on. Defaults to $"+EnvPort+".")
	fs.StringVar(&c.VendorURL, FlagVendorURL, c.VendorURL, "Vendor API base `URL`. Defaults to $"+EnvVendorURL+".")
	fs.DurationVar(&c.Timeout, FlagTimeout, c.Timeout, "How long to wait for the vendor before answering 504. Defaults to $"+EnvTimeout+".")
	fs.IntVar(&c.MaxTransactions, FlagMaxTransactions, c.MaxTransactions, "Maximum `number` of requests awaiting the vendor. Defaults to $"+EnvMaxTransactions+".")
	fs.StringVar(&c.LogLevel, FlagLogLevel, c.LogLevel, "Log `level` (none|error|warning|info|debug). Defaults to $"+EnvLogLevel+".")
	fs.BoolVar(&c.Verbose, FlagVerbose, c.Verbose, "Enable verbose logging (same as -log-level debug)")
	fs.StringVar(&c.CertFilename, FlagCert, c.CertFilename, "TLS certificate chain `file`. Serves plain HTTP when unset.")
	fs.StringVar(&c.KeyFilename, FlagTlsKey, c.KeyFilename, "Server TLS private key `file`")
	fs.BoolVar(&c.Metrics, FlagMetrics, c.Metrics, "Serve Prometheus metrics at /metrics")
	fs.StringVar(&c.ConfigFilename, FlagConfig, c.ConfigFilename, "YAML configuration `file`. Defaults to $"+EnvConfig+".")
}

// Load fills in every setting not given explicitly on fs's command line from the configuration
// file and the environment, then validates the result. Call Load after fs.Parse.
func (c *Config) Load(fs *flag.FlagSet) error {
	explicit := make(map[string]bool)
	if fs != nil {
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	}
	if !explicit[FlagConfig] {
		if path, ok := os.LookupEnv(EnvConfig); ok {
			c.ConfigFilename = path
		}
	}
	if c.ConfigFilename != "" {
		if err := c.ReadFile(c.ConfigFilename, explicit); err != nil {
			return err
		}
	}
	if err := c.ReadFromEnvironment(explicit); err != nil {
		return err
	}
	return c.Validate()
}

// fileConfig distinguishes keys that are absent from the file from zero values.
type fileConfig struct {
	Host            *string        `yaml:"host"`
	Port            *int           `yaml:"port"`
	VendorURL       *string        `yaml:"vendor-url"`
	Timeout         *time.Duration `yaml:"timeout"`
	MaxTransactions *int           `yaml:"max-transactions"`
	LogLevel        *string        `yaml:"log-level"`
	Verbose         *bool          `yaml:"verbose"`
	CertFilename    *string        `yaml:"cert"`
	KeyFilename     *string        `yaml:"tls-key"`
	Metrics         *bool          `yaml:"metrics"`
}

// ReadFile applies settings from a YAML file. Settings named in skip are left unchanged.
func (c *Config) ReadFile(path string, skip map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read configuration: %w", err)
	}
	var f fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, err)
	}
	log.Debug("Loaded configuration from %s", path)

	assign(&c.Host, f.Host, skip[FlagHost])
	assign(&c.Port, f.Port, skip[FlagPort])
	assign(&c.VendorURL, f.VendorURL, skip[FlagVendorURL])
	assign(&c.Timeout, f.Timeout, skip[FlagTimeout])
	assign(&c.MaxTransactions, f.MaxTransactions, skip[FlagMaxTransactions])
	assign(&c.LogLevel, f.LogLevel, skip[FlagLogLevel])
	assign(&c.Verbose, f.Verbose, skip[FlagVerbose])
	assign(&c.CertFilename, f.CertFilename, skip[FlagCert])
	assign(&c.KeyFilename, f.KeyFilename, skip[FlagTlsKey])
	assign(&c.Metrics, f.Metrics, skip[FlagMetrics])
	return nil
}

func assign[T any](dst *T, src *T, skip bool) {
	if src != nil && !skip {
		*dst = *src
	}
}

// ReadFromEnvironment applies settings from environment variables. Settings named in skip are
// left unchanged.
func (c *Config) ReadFromEnvironment(skip map[string]bool) error {
	lookup := func(name, env string) (string, bool) {
		if skip[name] {
			return "", false
		}
		return os.LookupEnv(env)
	}

	if host, ok := lookup(FlagHost, EnvHost); ok {
		c.Host = host
	}
	if vendorURL, ok := lookup(FlagVendorURL, EnvVendorURL); ok {
		c.VendorURL = vendorURL
	}
	if level, ok := lookup(FlagLogLevel, EnvLogLevel); ok {
		c.LogLevel = level
	}
	if cert, ok := lookup(FlagCert, EnvTlsCert); ok {
		c.CertFilename = cert
	}
	if key, ok := lookup(FlagTlsKey, EnvTlsKey); ok {
		c.KeyFilename = key
	}
	if verbose, ok := lookup(FlagVerbose, EnvVerbose); ok {
		c.Verbose = verbose != "false" && verbose != "0"
	}
	if metrics, ok := lookup(FlagMetrics, EnvMetrics); ok {
		c.Metrics = metrics != "false" && metrics != "0"
	}

	var err error
	if port, ok := lookup(FlagPort, EnvPort); ok {
		if c.Port, err = strconv.Atoi(port); err != nil {
			return fmt.Errorf("%w: invalid port: %s", ErrInvalidConfig, port)
		}
	}
	if timeout, ok := lookup(FlagTimeout, EnvTimeout); ok {
		if c.Timeout, err = time.ParseDuration(timeout); err != nil {
			return fmt.Errorf("%w: invalid timeout: %s", ErrInvalidConfig, timeout)
		}
	}
	if limit, ok := lookup(FlagMaxTransactions, EnvMaxTransactions); ok {
		if c.MaxTransactions, err = strconv.Atoi(limit); err != nil {
			return fmt.Errorf("%w: invalid transaction limit: %s", ErrInvalidConfig, limit)
		}
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxTransactions < 1 {
		return fmt.Errorf("%w: max-transactions must be at least 1", ErrInvalidConfig)
	}
	u, err := url.Parse(c.VendorURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: vendor URL '%s' is not an absolute http(s) URL", ErrInvalidConfig, c.VendorURL)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if (c.CertFilename == "") != (c.KeyFilename == "") {
		return fmt.Errorf("%w: -cert and -tls-key must be used together", ErrInvalidConfig)
	}
	return nil
}

// Level returns the effective log level. Verbose takes precedence over LogLevel.
func (c *Config) Level() (log.Level, error) {
	if c.Verbose {
		return log.LevelDebug, nil
	}
	return log.ParseLevel(c.LogLevel)
}

// Addr returns the address to listen on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLS returns true if the server should use TLS.
func (c *Config) TLS() bool {
	return c.CertFilename != ""
}
