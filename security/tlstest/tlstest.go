// Package tlstest issues throwaway certificates and HTTPS test servers for
// client tests. Files live under t.TempDir().
//
//	certs := tlstest.Generate(t)
//	srv := tlstest.NewServer(t, certs, handler, false)
//	cfg := security.TLSConfig{CAFile: certs.CAFile}
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// Certs is a test CA with one server and one client certificate.
type Certs struct {
	// CAFile holds the CA certificate in PEM form.
	CAFile string
	// CAPEM is the content of CAFile.
	CAPEM string
	// Pool trusts the CA.
	Pool *x509.CertPool

	// Server is valid for localhost, 127.0.0.1 and ::1.
	Server tls.Certificate

	// ClientCertFile and ClientKeyFile hold a client certificate for
	// mutual TLS.
	ClientCertFile string
	ClientKeyFile  string
}

type authority struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// Generate creates a CA and issues the server and client certificates.
func Generate(t testing.TB) *Certs {
	t.Helper()
	dir := t.TempDir()

	ca := newAuthority(t)
	caPEM := encodePEM("CERTIFICATE", ca.cert.Raw)
	caFile := filepath.Join(dir, "ca.pem")
	writeFile(t, caFile, caPEM)

	server := ca.issue(t, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "localhost"},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})

	client := ca.issue(t, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "restkit-client"},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	certFile := filepath.Join(dir, "client.pem")
	keyFile := filepath.Join(dir, "client-key.pem")
	writeFile(t, certFile, encodePEM("CERTIFICATE", client.Certificate[0]))
	keyDER, err := x509.MarshalECPrivateKey(client.PrivateKey.(*ecdsa.PrivateKey))
	if err != nil {
		t.Fatalf("tlstest: marshal client key: %v", err)
	}
	writeFile(t, keyFile, encodePEM("EC PRIVATE KEY", keyDER))

	pool := x509.NewCertPool()
	pool.AddCert(ca.cert)

	return &Certs{
		CAFile:         caFile,
		CAPEM:          string(caPEM),
		Pool:           pool,
		Server:         server,
		ClientCertFile: certFile,
		ClientKeyFile:  keyFile,
	}
}

// NewServer starts an HTTPS server for handler using certs.Server. With
// mutual set it also demands a client certificate issued by the same CA.
// The server is closed with the test.
func NewServer(t testing.TB, certs *Certs, handler http.Handler, mutual bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(handler)
	srv.TLS = &tls.Config{
		Certificates: []tls.Certificate{certs.Server},
		MinVersion:   tls.VersionTLS12,
	}
	if mutual {
		srv.TLS.ClientAuth = tls.RequireAndVerifyClientCert
		srv.TLS.ClientCAs = certs.Pool
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

// WriteInvalidPEM writes a PEM-framed file whose body is not a certificate.
func WriteInvalidPEM(t testing.TB, filename string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	writeFile(t, path, []byte("-----BEGIN CERTIFICATE-----\nnot-valid-base64-data\n-----END CERTIFICATE-----\n"))
	return path
}

func newAuthority(t testing.TB) *authority {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate CA key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"restkit test CA"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("tlstest: create CA cert: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("tlstest: parse CA cert: %v", err)
	}
	return &authority{cert: cert, key: key}
}

var serial atomic.Int64

// issue signs tmpl with the CA. Validity, serial and key usage are filled in.
func (a *authority) issue(t testing.TB, tmpl *x509.Certificate) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate key for %s: %v", tmpl.Subject.CommonName, err)
	}
	tmpl.SerialNumber = big.NewInt(serial.Add(1) + 1)
	tmpl.NotBefore = time.Now().Add(-time.Hour)
	tmpl.NotAfter = time.Now().Add(24 * time.Hour)
	tmpl.KeyUsage = x509.KeyUsageDigitalSignature
	der, err := x509.CreateCertificate(rand.Reader, tmpl, a.cert, &key.PublicKey, a.key)
	if err != nil {
		t.Fatalf("tlstest: sign %s: %v", tmpl.Subject.CommonName, err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func encodePEM(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func writeFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("tlstest: write %s: %v", path, err)
	}
}
