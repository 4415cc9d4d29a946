package tls

import (
	"context"
	"crypto/x509"
	"os"
	"testing"
	"time"
)

func servedCN(t *testing.T, r *Reloader) string {
	t.Helper()
	x509Cert, err := leaf(r.Certificate())
	if err != nil {
		t.Fatalf("leaf: %v", err)
	}
	return x509Cert.Subject.CommonName
}

func TestReloader_CheckPicksUpNewPair(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validKeyPair(t, dir, "first")

	r, err := NewReloader(certFile, keyFile, 0, discardLogger())
	if err != nil {
		t.Fatalf("NewReloader() error = %v", err)
	}
	if got := servedCN(t, r); got != "first" {
		t.Fatalf("initial CN = %q", got)
	}

	r.Check()
	if got := servedCN(t, r); got != "first" {
		t.Errorf("unchanged files reloaded to %q", got)
	}

	validKeyPair(t, dir, "second")
	later := time.Now().Add(time.Minute)
	for _, f := range []string{certFile, keyFile} {
		if err := os.Chtimes(f, later, later); err != nil {
			t.Fatal(err)
		}
	}

	r.Check()
	if got := servedCN(t, r); got != "second" {
		t.Errorf("CN after reload = %q, want second", got)
	}
}

func TestReloader_FailedReloadKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validKeyPair(t, dir, "current")

	r, err := NewReloader(certFile, keyFile, 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	before := r.Certificate()

	if err := os.WriteFile(certFile, []byte("truncated"), 0o600); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(certFile, later, later); err != nil {
		t.Fatal(err)
	}

	r.Check()
	if r.Certificate() != before {
		t.Error("broken files replaced the served certificate")
	}
}

func TestReloader_Run(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validKeyPair(t, dir, "run")

	t.Run("disabled returns immediately", func(t *testing.T) {
		r, err := NewReloader(certFile, keyFile, 0, discardLogger())
		if err != nil {
			t.Fatal(err)
		}
		done := make(chan struct{})
		go func() { r.Run(context.Background()); close(done) }()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return with polling disabled")
		}
	})

	t.Run("stops on cancel", func(t *testing.T) {
		r, err := NewReloader(certFile, keyFile, 10*time.Millisecond, discardLogger())
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() { r.Run(ctx); close(done) }()

		time.Sleep(30 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not stop after cancel")
		}
	})
}

func TestValidateCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validKeyPair(t, dir, "window")
	r, err := NewReloader(certFile, keyFile, 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	cert := r.Certificate()
	x509Cert, _ := leaf(cert)

	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{name: "within window", now: time.Now()},
		{name: "before not-before", now: x509Cert.NotBefore.Add(-time.Minute), wantErr: true},
		{name: "after not-after", now: x509Cert.NotAfter.Add(time.Minute), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCertificate(cert, tt.now)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCertificate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidateCertificate(nil, time.Now()); err == nil {
		t.Error("nil certificate should fail")
	}
}

func TestExpiresSoon(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		notAfter time.Time
		want     bool
	}{
		{name: "a year left", notAfter: now.Add(365 * 24 * time.Hour), want: false},
		{name: "a week left", notAfter: now.Add(7 * 24 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, remaining := ExpiresSoon(&x509.Certificate{NotAfter: tt.notAfter}, now)
			if got != tt.want {
				t.Errorf("ExpiresSoon() = %v, want %v", got, tt.want)
			}
			if remaining != tt.notAfter.Sub(now) {
				t.Errorf("remaining = %v", remaining)
			}
		})
	}
}
