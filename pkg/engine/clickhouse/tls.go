package clickhouse

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// TLSSettings are the files used for mutual TLS.
type TLSSettings struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// Enabled returns true when a client certificate is configured.
func (s TLSSettings) Enabled() bool {
	return s.CertFile != "" || s.KeyFile != ""
}

// GetTLSConfig creates a TLS config for connecting to ClickHouse over mTLS.
//
// Example usage:
//
//	cfg, err := GetTLSConfig(opts.TLS)
//	if err != nil {
//		return err
//	}
func GetTLSConfig(settings TLSSettings) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to load certfile/keyfile")
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if settings.CAFile == "" {
		return cfg, nil
	}

	caCert, err := os.ReadFile(settings.CAFile)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to load CAfile")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.Errorf("no certificates found in %s", settings.CAFile)
	}

	cfg.RootCAs = pool
	return cfg, nil
}
