// Package config loads tool configuration with Viper.
//
// Sources, lowest precedence first: a YAML file (explicit or found next to
// the binary's cmd directory), a .env file loaded with godotenv, then the
// process environment. Environment keys map onto nested fields by
// splitting on underscores, so RESTFETCH_HTTP_TIMEOUT=1m sets http.timeout
// when loaded WithEnvPrefix("restfetch").
//
//	var cfg Config
//	err := config.LoadConfig("restfetch", &cfg, config.WithEnvPrefix("restfetch"))
package config
