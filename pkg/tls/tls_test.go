package tls

import (
	"crypto/tls"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGenerateSelfSigned(t *testing.T) {
	cert, err := GenerateSelfSigned([]string{"localhost", "127.0.0.1", "::1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateSelfSigned: %v", err)
	}
	leaf := cert.Leaf
	if len(leaf.DNSNames) != 1 || leaf.DNSNames[0] != "localhost" {
		t.Errorf("DNS names = %v", leaf.DNSNames)
	}
	if len(leaf.IPAddresses) != 2 || !leaf.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("IPs = %v", leaf.IPAddresses)
	}
	if d := time.Until(leaf.NotAfter); d > time.Hour || d < 55*time.Minute {
		t.Errorf("expires in %v", d)
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		t.Errorf("VerifyHostname: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "certs", "server.crt")
	keyFile := filepath.Join(dir, "certs", "server.key")

	gen, err := GenerateSelfSigned([]string{"localhost"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFiles(gen, certFile, keyFile); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	fi, err := os.Stat(keyFile)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v", fi.Mode().Perm())
	}

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"from files", Options{CertFile: certFile, KeyFile: keyFile}, nil},
		{"generated", DefaultOptions(), nil},
		{"nothing", Options{}, ErrNoCertificate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.MinVersion != tls.VersionTLS12 {
				t.Errorf("MinVersion = %x", cfg.MinVersion)
			}
			exp, err := Expiry(cfg)
			if err != nil || exp.Before(time.Now()) {
				t.Errorf("Expiry = %v, %v", exp, err)
			}
		})
	}

	if _, err := Load(Options{CertFile: filepath.Join(dir, "missing.crt"), KeyFile: keyFile}); err == nil {
		t.Error("missing certificate file accepted")
	}
}

func TestWriteFilesRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFiles(tls.Certificate{}, filepath.Join(dir, "c"), filepath.Join(dir, "k")); err == nil {
		t.Error("empty certificate written")
	}
}

func TestExpiryWithoutCertificate(t *testing.T) {
	if _, err := Expiry(&tls.Config{}); err == nil {
		t.Error("expected error")
	}
	if _, err := Expiry(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
