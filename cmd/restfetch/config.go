package main

import (
	"github.com/kbukum/restkit/config"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/storage"
)

// Config is the restfetch configuration file layout.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	HTTP      httpclient.Config `yaml:"http" mapstructure:"http"`
	Storage   storage.Config    `yaml:"storage" mapstructure:"storage"`
	Telemetry TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`

	// Token is sent as a bearer token when set.
	Token string `yaml:"token" mapstructure:"token"`
}

// TelemetryConfig enables OTLP metric export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "restfetch"
	}
	c.ServiceConfig.ApplyDefaults()
	if c.HTTP.Name == "" {
		c.HTTP.Name = c.Name
	}
	c.HTTP.ApplyDefaults()
	c.Storage.ApplyDefaults()
	if c.Token != "" && c.HTTP.Auth == nil {
		c.HTTP.Auth = httpclient.BearerAuth(c.Token)
	}
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Storage.Validate()
}
