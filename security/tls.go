package security

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/validation"
)

// TLSConfig is the client-side TLS setup for outbound connections. A zero
// or nil config leaves the transport on Go's defaults.
type TLSConfig struct {
	// SkipVerify disables server certificate verification. Test use only.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CAPEM is an inline PEM bundle, for CAs passed through the environment.
	CAPEM string `yaml:"ca_pem" mapstructure:"ca_pem"`

	// CertFile and KeyFile are the client certificate for mutual TLS.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the name verified against the server certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is "1.2" or "1.3". Empty means 1.2.
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
}

var minVersions = map[string]uint16{
	"":    tls.VersionTLS12,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// IsEnabled reports whether any setting differs from the defaults.
func (c *TLSConfig) IsEnabled() bool {
	return c != nil && *c != TLSConfig{}
}

// Validate checks the config without touching the filesystem.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	_, known := minVersions[c.MinVersion]
	if err := validation.New().
		Custom((c.CertFile == "") == (c.KeyFile == ""), "tls.cert_file", "cert_file and key_file must be set together").
		Custom(known, "tls.min_version", `must be "1.2" or "1.3"`).
		Validate(); err != nil {
		return err
	}
	return nil
}

// Build returns the *tls.Config for the transport, or nil when the config is
// not enabled. Unreadable or unparseable files fail with INVALID_INPUT.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for tests
		ServerName:         c.ServerName,
		MinVersion:         minVersions[c.MinVersion],
	}
	roots, err := c.rootCAs()
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = roots

	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, invalid("tls: load client certificate", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// rootCAs extends the system pool with the configured bundles. It returns
// nil, meaning the system pool, when none is configured.
func (c *TLSConfig) rootCAs() (*x509.CertPool, error) {
	if c.CAFile == "" && c.CAPEM == "" {
		return nil, nil
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if c.CAFile != "" {
		data, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, invalid("tls: read ca_file", err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, invalid("tls: no certificate in ca_file "+c.CAFile, nil)
		}
	}
	if c.CAPEM != "" && !pool.AppendCertsFromPEM([]byte(c.CAPEM)) {
		return nil, invalid("tls: no certificate in ca_pem", nil)
	}
	return pool, nil
}

func invalid(msg string, cause error) *apperrors.AppError {
	return apperrors.Validation(msg).WithCause(cause)
}
