package drop

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/dropkit/dropfetch/pkg/logging"
)

// ConfigKey is the root configuration key (in Viper) for this module.
var ConfigKey = "download"

const (
	// DefaultParallelismLimit bounds concurrent file transfers.
	DefaultParallelismLimit = 8
	// DefaultRetryDownloadCount is the retry budget of the direct transport.
	DefaultRetryDownloadCount = 4
	// contentStoreRetryCap is the smaller attempt cap of the content-store
	// transport; its fetches are idempotent and cheap to redo.
	contentStoreRetryCap = 3
)

// Config is the immutable parameter set of one artifact download operation.
type Config struct {
	Logger logging.Interface

	TargetDirectory              string   `mapstructure:"target_directory" validate:"required"`
	ProjectScope                 string   `mapstructure:"project_scope"`
	ParallelismLimit             int      `mapstructure:"parallelism_limit" validate:"gt=0"`
	RetryDownloadCount           int      `mapstructure:"retry_download_count" validate:"gte=0"`
	IncludeArtifactNameInPath    bool     `mapstructure:"include_artifact_name_in_path"`
	CheckDownloadedFiles         bool     `mapstructure:"check_downloaded_files"`
	ExtractTars                  bool     `mapstructure:"extract_tars"`
	ExtractedTarsTempPath        string   `mapstructure:"extracted_tars_temp_path"`
	DisableContentStoreTransport bool     `mapstructure:"disable_content_store_transport"`
	PathFilterPatterns           []string `mapstructure:"path_filter_patterns"`
	FilterIgnoreCase             bool     `mapstructure:"filter_ignore_case"`
}

func defaultConfig() *Config {
	return &Config{
		Logger:             logging.Discard(),
		ParallelismLimit:   DefaultParallelismLimit,
		RetryDownloadCount: DefaultRetryDownloadCount,
	}
}

// Option is a configuration option function.
type Option func(*Config) error

// Apply applies the given options to the configuration.
func (c *Config) Apply(opts ...Option) error {
	for _, o := range opts {
		if o == nil {
			continue
		}

		if err := o(c); err != nil {
			return err
		}
	}

	return nil
}

// NewConfig builds and returns a new configuration from the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := defaultConfig()
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid download config: %w", err)
	}

	if c.ExtractTars && c.ExtractedTarsTempPath == "" {
		return errors.New("invalid download config: extract_tars requires extracted_tars_temp_path")
	}

	return nil
}

// WithLogger specifies the logger.
func WithLogger(logger logging.Interface) Option {
	return func(c *Config) error {
		if logger == nil {
			return errors.New("invalid logger nil")
		}

		c.Logger = logger
		return nil
	}
}

// WithViper applies the configuration from the root "download" Viper key.
func WithViper(v *viper.Viper) Option {
	return WithViperKey(v, ConfigKey)
}

// WithViperKey applies the configuration from the given Viper key.
func WithViperKey(v *viper.Viper, configKey string) Option {
	return func(c *Config) error {
		if v == nil {
			return errors.New("nil Viper")
		}

		return v.UnmarshalKey(configKey, c)
	}
}

// WithTargetDirectory specifies where artifacts are materialized.
func WithTargetDirectory(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return errors.New("target directory cannot be empty")
		}

		c.TargetDirectory = dir
		return nil
	}
}

// WithParallelismLimit specifies the maximum number of in-flight transfers.
func WithParallelismLimit(limit int) Option {
	return func(c *Config) error {
		if limit <= 0 {
			return fmt.Errorf("parallelism limit must be positive, got %d", limit)
		}

		c.ParallelismLimit = limit
		return nil
	}
}

// WithRetryDownloadCount specifies the per-item retry budget.
func WithRetryDownloadCount(count int) Option {
	return func(c *Config) error {
		if count < 0 {
			return fmt.Errorf("retry count must be >= 0, got %d", count)
		}

		c.RetryDownloadCount = count
		return nil
	}
}

// WithPathFilterPatterns specifies the path filter glob patterns.
func WithPathFilterPatterns(patterns ...string) Option {
	return func(c *Config) error {
		c.PathFilterPatterns = patterns
		return nil
	}
}
