package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SEQPACK"

// Config is the CLI configuration.
type Config struct {
	Packer     PackerConfig     `mapstructure:"packer"`
	Ratio      RatioConfig      `mapstructure:"ratio"`
	Store      StoreConfig      `mapstructure:"store"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Collective CollectiveConfig `mapstructure:"collective"`
	Log        LogConfig        `mapstructure:"log"`
}

// PackerConfig configures the Packer.
type PackerConfig struct {
	Capacity        int    `mapstructure:"capacity"`
	TargetBins      int    `mapstructure:"targetBins"`
	PadValue        int32  `mapstructure:"padValue"`
	PaddingSide     string `mapstructure:"paddingSide"`
	MaxLeftoverBins int    `mapstructure:"maxLeftoverBins"`
	// RawBatchSize is the number of raw samples per pack call. Zero derives it
	// from Ratio.Value and TargetBins.
	RawBatchSize int `mapstructure:"rawBatchSize"`
}

// RatioConfig configures the packing ratio search.
type RatioConfig struct {
	// Value is a fixed packing ratio. Zero means search.
	Value       float64 `mapstructure:"value"`
	NumRatios   int     `mapstructure:"numRatios"`
	Concurrency int     `mapstructure:"concurrency"`
}

// StoreConfig selects the blob store for checkpoints and store rendezvous.
type StoreConfig struct {
	// Type is one of "memory", "local", "s3" or "minio".
	Type      string `mapstructure:"type"`
	Path      string `mapstructure:"path"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	UseSSL    bool   `mapstructure:"useSSL"`
}

// CheckpointConfig configures packer checkpoints.
type CheckpointConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Prefix      string `mapstructure:"prefix"`
	Codec       string `mapstructure:"codec"`
	Compression string `mapstructure:"compression"`
	Keep        int    `mapstructure:"keep"`
}

// CollectiveConfig configures the cross-worker rendezvous.
type CollectiveConfig struct {
	// Backend is one of "none", "store" or "dynamo".
	Backend      string        `mapstructure:"backend"`
	Run          string        `mapstructure:"run"`
	Rank         int           `mapstructure:"rank"`
	World        int           `mapstructure:"world"`
	Table        string        `mapstructure:"table"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("packer.capacity", 2048)
	v.SetDefault("packer.targetBins", 8)
	v.SetDefault("packer.padValue", 0)
	v.SetDefault("packer.paddingSide", "right")
	v.SetDefault("packer.maxLeftoverBins", -1)
	v.SetDefault("packer.rawBatchSize", 0)

	v.SetDefault("ratio.value", 0)
	v.SetDefault("ratio.numRatios", 20)
	v.SetDefault("ratio.concurrency", 0)

	v.SetDefault("store.type", "local")
	v.SetDefault("store.path", "./seqpack-data")
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.accessKey", "")
	v.SetDefault("store.secretKey", "")
	v.SetDefault("store.useSSL", true)

	v.SetDefault("checkpoint.enabled", false)
	v.SetDefault("checkpoint.prefix", "checkpoints/")
	v.SetDefault("checkpoint.codec", "go-json")
	v.SetDefault("checkpoint.compression", "lz4")
	v.SetDefault("checkpoint.keep", 3)

	v.SetDefault("collective.backend", "none")
	v.SetDefault("collective.run", "default")
	v.SetDefault("collective.rank", 0)
	v.SetDefault("collective.world", 1)
	v.SetDefault("collective.table", "seqpack-rendezvous")
	v.SetDefault("collective.pollInterval", 200*time.Millisecond)
	v.SetDefault("collective.timeout", 10*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. An empty path searches for config.yaml in the
// working directory; a missing file is not an error unless path was given.
// bind, if non-nil, is called before unmarshalling to bind command line flags.
func Load(path string, bind func(v *viper.Viper) error) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if bind != nil {
		if err := bind(v); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if c.Packer.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("packer.capacity must be positive, got %d", c.Packer.Capacity))
	}
	if c.Packer.TargetBins <= 0 {
		errs = append(errs, fmt.Errorf("packer.targetBins must be positive, got %d", c.Packer.TargetBins))
	}
	if c.Packer.RawBatchSize < 0 {
		errs = append(errs, fmt.Errorf("packer.rawBatchSize must not be negative, got %d", c.Packer.RawBatchSize))
	}
	if c.Ratio.Value != 0 && c.Ratio.Value < 1 {
		errs = append(errs, fmt.Errorf("ratio.value must be at least 1, got %v", c.Ratio.Value))
	}
	if !oneOf(c.Store.Type, "memory", "local", "s3", "minio") {
		errs = append(errs, fmt.Errorf("store.type %q is not one of memory, local, s3, minio", c.Store.Type))
	}
	if (c.Store.Type == "s3" || c.Store.Type == "minio") && c.Store.Bucket == "" {
		errs = append(errs, fmt.Errorf("store.bucket is required for store type %s", c.Store.Type))
	}
	if c.Store.Type == "minio" && c.Store.Endpoint == "" {
		errs = append(errs, errors.New("store.endpoint is required for store type minio"))
	}
	if !oneOf(c.Collective.Backend, "none", "store", "dynamo") {
		errs = append(errs, fmt.Errorf("collective.backend %q is not one of none, store, dynamo", c.Collective.Backend))
	}
	if c.Collective.World < 1 || c.Collective.Rank < 0 || c.Collective.Rank >= c.Collective.World {
		errs = append(errs, fmt.Errorf("collective.rank %d outside world of %d", c.Collective.Rank, c.Collective.World))
	}
	if !oneOf(c.Log.Format, "text", "json") {
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

func oneOf(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}
