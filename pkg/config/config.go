package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Digest algorithms accepted for large-object checksums.
const (
	DigestMD5    = "MD5"
	DigestSHA1   = "SHA-1"
	DigestSHA256 = "SHA-256"
)

// Archive format versions.
const (
	Version21 = "2.1"
	Version22 = "2.2"
)

// Output formats.
const (
	FormatDirectory = "dir"
	FormatZip       = "zip"
)

type Config struct {
	Codec       Codec             `yaml:"codec"`
	Logging     LoggingConfig     `yaml:"logging"`
	Source      SourceConfig      `yaml:"source"`
	Output      OutputConfig      `yaml:"output"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
}

// Codec holds the operator-facing settings of the content codec.
type Codec struct {
	StringInlineThreshold int64  `yaml:"string_inline_threshold"`
	BinaryInlineThreshold int64  `yaml:"binary_inline_threshold"`
	ExternalLobs          bool   `yaml:"external_lobs"`
	ContainerBudgetMB     int64  `yaml:"container_budget_mb"`
	ContainerMaxObjects   int    `yaml:"container_max_objects"`
	DigestAlgorithm       string `yaml:"digest_algorithm"`
	DigestCase            string `yaml:"digest_case"`
	Pretty                bool   `yaml:"pretty"`
	Version               string `yaml:"version"`
	SpoolDir              string `yaml:"spool_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type SourceConfig struct {
	Type     string `yaml:"type"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSL      bool   `yaml:"ssl"`
}

type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// ObjectStoreConfig points external large objects at an S3-compatible bucket.
type ObjectStoreConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Codec: DefaultCodec(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Format: FormatDirectory,
		},
	}
}

// DefaultCodec returns the codec defaults.
func DefaultCodec() Codec {
	return Codec{
		StringInlineThreshold: 4000,
		BinaryInlineThreshold: 2000,
		ContainerMaxObjects:   1000,
		DigestAlgorithm:       DigestMD5,
		DigestCase:            "upper",
		Version:               Version22,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := c.Codec.Validate(); err != nil {
		return err
	}
	switch c.Output.Format {
	case "", FormatDirectory, FormatZip:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatDirectory, FormatZip, c.Output.Format)
	}
	if c.ObjectStore.Enabled {
		if c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "" {
			return fmt.Errorf("object_store.endpoint and object_store.bucket are required when the object store is enabled")
		}
	}
	return nil
}

// Validate normalizes the digest settings and rejects impossible values.
func (c *Codec) Validate() error {
	if c.StringInlineThreshold < 0 {
		return fmt.Errorf("codec.string_inline_threshold must not be negative")
	}
	if c.BinaryInlineThreshold < 0 {
		return fmt.Errorf("codec.binary_inline_threshold must not be negative")
	}
	if c.ContainerBudgetMB < 0 {
		return fmt.Errorf("codec.container_budget_mb must not be negative")
	}
	if c.ContainerMaxObjects < 1 {
		return fmt.Errorf("codec.container_max_objects must be at least 1")
	}

	algo, err := NormalizeDigest(c.DigestAlgorithm)
	if err != nil {
		return err
	}
	c.DigestAlgorithm = algo

	switch strings.ToLower(c.DigestCase) {
	case "", "upper":
		c.DigestCase = "upper"
	case "lower":
		c.DigestCase = "lower"
	default:
		return fmt.Errorf("codec.digest_case must be upper or lower, got %q", c.DigestCase)
	}

	switch c.Version {
	case "":
		c.Version = Version22
	case Version21, Version22:
	default:
		return fmt.Errorf("codec.version must be %s or %s, got %q", Version21, Version22, c.Version)
	}
	return nil
}

// NormalizeDigest maps accepted spellings to the canonical algorithm name.
// "none" and the empty string disable digests.
func NormalizeDigest(name string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "NONE":
		return "", nil
	case "MD5":
		return DigestMD5, nil
	case "SHA-1", "SHA1":
		return DigestSHA1, nil
	case "SHA-256", "SHA256":
		return DigestSHA256, nil
	}
	return "", fmt.Errorf("unsupported digest algorithm %q", name)
}

// ContainerBudgetBytes is the external container size budget in bytes.
func (c Codec) ContainerBudgetBytes() int64 {
	return c.ContainerBudgetMB * 1024 * 1024
}

// LowerCaseDigest reports whether digests are written in lower case.
func (c Codec) LowerCaseDigest() bool {
	return c.DigestCase == "lower"
}

// Overrides collects key=value settings given on the command line and
// applies them on top of a loaded configuration.
type Overrides struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewOverrides creates an empty override set
func NewOverrides() *Overrides {
	return &Overrides{values: make(map[string]string)}
}

// Set parses one "key=value" pair.
func (o *Overrides) Set(pair string) error {
	key, value, ok := strings.Cut(pair, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("override %q is not key=value", pair)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	return nil
}

// Get retrieves an override value
func (o *Overrides) Get(key string) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.values[key]
}

// GetAll returns a copy of all override values
func (o *Overrides) GetAll() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	values := make(map[string]string, len(o.values))
	for k, v := range o.values {
		values[k] = v
	}
	return values
}

// Apply writes the overrides into c and validates the result.
func (o *Overrides) Apply(c *Config) error {
	for key, value := range o.GetAll() {
		if err := c.set(key, value); err != nil {
			return err
		}
	}
	return c.Validate()
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "codec.string_inline_threshold":
		c.Codec.StringInlineThreshold, err = strconv.ParseInt(value, 10, 64)
	case "codec.binary_inline_threshold":
		c.Codec.BinaryInlineThreshold, err = strconv.ParseInt(value, 10, 64)
	case "codec.external_lobs":
		c.Codec.ExternalLobs, err = strconv.ParseBool(value)
	case "codec.container_budget_mb":
		c.Codec.ContainerBudgetMB, err = strconv.ParseInt(value, 10, 64)
	case "codec.container_max_objects":
		c.Codec.ContainerMaxObjects, err = strconv.Atoi(value)
	case "codec.digest_algorithm":
		c.Codec.DigestAlgorithm = value
	case "codec.digest_case":
		c.Codec.DigestCase = value
	case "codec.pretty":
		c.Codec.Pretty, err = strconv.ParseBool(value)
	case "codec.version":
		c.Codec.Version = value
	case "codec.spool_dir":
		c.Codec.SpoolDir = value
	case "logging.level":
		c.Logging.Level = value
	case "output.path":
		c.Output.Path = value
	case "output.format":
		c.Output.Format = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
