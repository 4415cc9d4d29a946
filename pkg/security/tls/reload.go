package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Reloader serves a certificate and reloads it when the files on disk
// change, so renewals take effect without a restart.
type Reloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	cert     *tls.Certificate
	certTime time.Time
	keyTime  time.Time
}

// NewReloader loads the key pair and returns a reloader for it. An interval
// of zero disables polling.
func NewReloader(certFile, keyFile string, interval time.Duration, logger *slog.Logger) (*Reloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logger.With("component", "tls"),
		now:      time.Now,
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	r.logCertificateInfo()
	return r, nil
}

// Run polls the certificate files until ctx is cancelled. It returns
// immediately when polling is disabled.
func (r *Reloader) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Check()
		case <-ctx.Done():
			return
		}
	}
}

// Check reloads the key pair if either file changed since the last load. A
// failed reload keeps the current certificate.
func (r *Reloader) Check() {
	if !r.needsReload() {
		return
	}
	if err := r.reload(); err != nil {
		r.logger.Error("failed to reload certificate",
			"error", err,
			"cert_file", r.certFile,
			"key_file", r.keyFile,
		)
		return
	}
	r.logger.Info("certificate reloaded", "cert_file", r.certFile)
	r.logCertificateInfo()
}

func (r *Reloader) needsReload() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return !certInfo.ModTime().Equal(r.certTime) || !keyInfo.ModTime().Equal(r.keyTime)
}

func (r *Reloader) reload() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return fmt.Errorf("TLS cert file not found: %w", err)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return fmt.Errorf("TLS key file not found: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load key pair: %w", err)
	}
	if err := ValidateCertificate(&cert, r.now()); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.mu.Unlock()
	return nil
}

// Certificate returns the certificate currently served.
func (r *Reloader) Certificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificateFunc adapts the reloader to tls.Config.GetCertificate.
func (r *Reloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		return r.Certificate(), nil
	}
}

func (r *Reloader) logCertificateInfo() {
	x509Cert, err := leaf(r.Certificate())
	if err != nil {
		return
	}

	soon, remaining := ExpiresSoon(x509Cert, r.now())
	attrs := []any{
		"subject", x509Cert.Subject.CommonName,
		"issuer", x509Cert.Issuer.CommonName,
		"expires_in_days", int(remaining.Hours() / 24),
		"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
	}
	if soon {
		r.logger.Warn("certificate expiring soon", attrs...)
		return
	}
	r.logger.Info("certificate loaded", attrs...)
}
