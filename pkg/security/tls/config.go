package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/enricher/pkg/config"
)

// NewServerConfig builds the listener TLS settings from cfg. The certificate
// is loaded once here; the returned Reloader keeps it current when run.
func NewServerConfig(cfg config.TLSConfig, logger *slog.Logger) (*tls.Config, *Reloader, error) {
	if cfg.CertFile == "" {
		return nil, nil, fmt.Errorf("TLS cert file not specified")
	}
	if cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("TLS key file not specified")
	}

	minVersion, err := parseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, nil, err
	}
	suites, err := parseCipherSuites(cfg.CipherSuites)
	if err != nil {
		return nil, nil, err
	}

	reloader, err := NewReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	if err != nil {
		return nil, nil, err
	}

	// #nosec G402 - MinVersion is limited to TLS 1.2 and 1.3
	tlsConfig := &tls.Config{
		MinVersion:     minVersion,
		CipherSuites:   suites,
		GetCertificate: reloader.GetCertificateFunc(),
	}

	if cfg.ClientCAFile != "" {
		if err := configureClientAuth(tlsConfig, cfg); err != nil {
			return nil, nil, err
		}
	}

	return tlsConfig, reloader, nil
}

func parseTLSVersion(v string) (uint16, error) {
	switch v {
	case "1.2", "":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}

// parseCipherSuites maps names to suite IDs. Nil keeps Go's defaults.
func parseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}

	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuiteMap[name]
		if !ok {
			return nil, fmt.Errorf("unknown or insecure cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	return suites, nil
}

// cipherSuiteMap lists the TLS 1.2 suites that may be selected. TLS 1.3
// suites are not configurable in crypto/tls.
var cipherSuiteMap = map[string]uint16{
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305":    tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305":  tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

func configureClientAuth(tlsConfig *tls.Config, cfg config.TLSConfig) error {
	caPEM, err := os.ReadFile(cfg.ClientCAFile)
	if err != nil {
		return fmt.Errorf("failed to read client CA: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return fmt.Errorf("no certificates found in client CA file %s", cfg.ClientCAFile)
	}

	tlsConfig.ClientCAs = pool
	switch cfg.ClientAuth {
	case "request":
		tlsConfig.ClientAuth = tls.RequestClientCert
	case "verify_if_given":
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	default:
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return nil
}
