package storage

import (
	"github.com/kbukum/restkit/validation"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal    = "local"
	ProviderS3       = "s3"
	ProviderSupabase = "supabase"
)

// Default configuration values.
const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "./downloads"
	DefaultRegion   = "us-east-1"
)

// Config holds storage configuration for every backend.
type Config struct {
	// Provider selects the storage backend.
	Provider string `mapstructure:"provider" yaml:"provider" validate:"oneof=local s3 supabase"`

	// BasePath is the root directory for local storage.
	BasePath string `mapstructure:"base_path" yaml:"base_path"`

	// Bucket is the S3 or Supabase bucket name.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the AWS region for S3.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`

	// ForcePathStyle uses path-style S3 addressing.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// AccessKey is the AWS access key ID.
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`

	// SecretKey is the AWS secret access key or the Supabase service key.
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`

	// URL is the Supabase project URL.
	URL string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Provider == ProviderLocal && c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Provider == ProviderS3 && c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks that the configuration is complete for the selected provider.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New()
	switch c.Provider {
	case ProviderLocal:
		v.Required("base_path", c.BasePath)
	case ProviderS3:
		v.Required("bucket", c.Bucket).Required("region", c.Region)
	case ProviderSupabase:
		v.Required("url", c.URL).Required("bucket", c.Bucket).Required("secret_key", c.SecretKey)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
