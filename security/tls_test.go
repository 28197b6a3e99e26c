package security

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/security/tlstest"
)

func TestTLSConfig_DisabledKeepsTransportDefaults(t *testing.T) {
	var nilCfg *TLSConfig
	for _, cfg := range []*TLSConfig{nilCfg, {}} {
		got, err := cfg.Build()
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.False(t, cfg.IsEnabled())
	}
}

func TestTLSConfig_MinVersion(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
	}{
		{"", tls.VersionTLS12},
		{"1.2", tls.VersionTLS12},
		{"1.3", tls.VersionTLS13},
	}
	for _, tt := range tests {
		got, err := (&TLSConfig{ServerName: "api.internal", MinVersion: tt.in}).Build()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.MinVersion, tt.in)
		assert.Equal(t, "api.internal", got.ServerName)
		assert.Nil(t, got.RootCAs, "no bundle configured means the system pool")
	}

	_, err := (&TLSConfig{MinVersion: "1.0"}).Build()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput), "got %v", err)
	assert.Contains(t, err.Error(), "tls.min_version")
}

func TestTLSConfig_OnlyMinVersionIsEnabled(t *testing.T) {
	cfg := &TLSConfig{MinVersion: "1.3"}
	assert.True(t, cfg.IsEnabled())
	got, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), got.MinVersion)
}

func TestTLSConfig_CABundles(t *testing.T) {
	certs := tlstest.Generate(t)

	fromFile, err := (&TLSConfig{CAFile: certs.CAFile}).Build()
	require.NoError(t, err)
	require.NotNil(t, fromFile.RootCAs)

	inline, err := (&TLSConfig{CAPEM: certs.CAPEM}).Build()
	require.NoError(t, err)
	require.NotNil(t, inline.RootCAs)
	assert.True(t, fromFile.RootCAs.Equal(inline.RootCAs), "file and inline bundles should trust the same roots")
}

func TestTLSConfig_ClientCertificate(t *testing.T) {
	certs := tlstest.Generate(t)

	got, err := (&TLSConfig{CertFile: certs.ClientCertFile, KeyFile: certs.ClientKeyFile}).Build()
	require.NoError(t, err)
	assert.Len(t, got.Certificates, 1)
}

func TestTLSConfig_BuildErrors(t *testing.T) {
	dir := t.TempDir()
	invalid := tlstest.WriteInvalidPEM(t, "bad.pem")

	cases := map[string]struct {
		cfg  *TLSConfig
		want string
	}{
		"missing ca file":  {&TLSConfig{CAFile: filepath.Join(dir, "none.pem")}, "tls: read ca_file"},
		"unparseable ca":   {&TLSConfig{CAFile: invalid}, "tls: no certificate in ca_file"},
		"garbage ca pem":   {&TLSConfig{CAPEM: "not a certificate"}, "tls: no certificate in ca_pem"},
		"missing key pair": {&TLSConfig{CertFile: filepath.Join(dir, "c.pem"), KeyFile: filepath.Join(dir, "k.pem")}, "tls: load client certificate"},
		"cert without key": {&TLSConfig{CertFile: "c.pem"}, "tls.cert_file"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.cfg.Build()
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput), "got %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	var nilCfg *TLSConfig
	assert.NoError(t, nilCfg.Validate())
	assert.NoError(t, (&TLSConfig{CertFile: "c", KeyFile: "k", MinVersion: "1.3"}).Validate())
	assert.Error(t, (&TLSConfig{CertFile: "c"}).Validate())
	assert.Error(t, (&TLSConfig{KeyFile: "k"}).Validate())
	assert.Error(t, (&TLSConfig{MinVersion: "TLS1.3"}).Validate())
}
