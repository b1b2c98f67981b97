package tls

import (
	stdtls "crypto/tls"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetup_Disabled(t *testing.T) {
	cfg, err := Setup(nil)
	if err != nil || cfg != nil {
		t.Fatalf("Setup(nil) = %v, %v", cfg, err)
	}
	cfg, err = Setup(&Config{Enabled: false})
	if err != nil || cfg != nil {
		t.Fatalf("Setup(disabled) = %v, %v", cfg, err)
	}
}

func TestSetup_NoConfiguration(t *testing.T) {
	if _, err := Setup(&Config{Enabled: true}); err == nil {
		t.Fatalf("expected error without cert configuration")
	}
}

func TestSetup_AutoGenerate(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Setup(&Config{Enabled: true, Dir: dir, AutoGenerate: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if cfg == nil || cfg.GetCertificate == nil {
		t.Fatalf("no certificate hook")
	}

	for _, f := range []string{tlsCrt, tlsKey, tlsCaCrt} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Fatalf("%s not generated: %v", f, err)
		}
	}

	cert, err := cfg.GetCertificate(&stdtls.ClientHelloInfo{})
	if err != nil {
		t.Fatalf("GetCertificate: %v", err)
	}
	if len(cert.Certificate) == 0 {
		t.Fatalf("empty certificate chain")
	}

	// existing files are reused, not regenerated
	before, err := os.ReadFile(filepath.Join(dir, tlsCrt))
	if err != nil {
		t.Fatalf("read cert: %v", err)
	}
	if _, err := Setup(&Config{Enabled: true, Dir: dir, AutoGenerate: true}); err != nil {
		t.Fatalf("second Setup: %v", err)
	}
	after, err := os.ReadFile(filepath.Join(dir, tlsCrt))
	if err != nil {
		t.Fatalf("read cert again: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("certificate regenerated")
	}
}

func TestSetup_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "srv.crt")
	keyPath := filepath.Join(dir, "srv.key")
	err := GenerateSelfSignedCert(CertConfig{
		CommonName:   "craftd-test",
		Organization: "craftd",
		DNSNames:     []string{"localhost"},
		IPAddresses:  []string{"127.0.0.1"},
		NotAfter:     time.Now().Add(time.Hour),
		CertPath:     certPath,
		KeyPath:      keyPath,
	})
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert: %v", err)
	}

	cfg, err := Setup(&Config{Enabled: true, CertFile: certPath, KeyFile: keyPath})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if _, err := cfg.GetCertificate(&stdtls.ClientHelloInfo{}); err != nil {
		t.Fatalf("GetCertificate: %v", err)
	}
}

func TestVersions(t *testing.T) {
	c := &Config{}
	minVer, maxVer := c.versions()
	if minVer != stdtls.VersionTLS13 || maxVer != stdtls.VersionTLS13 {
		t.Fatalf("defaults = %x, %x", minVer, maxVer)
	}

	c = &Config{MinVersion: "1.2", MaxVersion: "1.3"}
	minVer, maxVer = c.versions()
	if minVer != stdtls.VersionTLS12 || maxVer != stdtls.VersionTLS13 {
		t.Fatalf("configured = %x, %x", minVer, maxVer)
	}

	c = &Config{MinVersion: "bogus"}
	minVer, _ = c.versions()
	if minVer != stdtls.VersionTLS13 {
		t.Fatalf("bogus version = %x", minVer)
	}
}

func TestSafeReadFile_EscapeRejected(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "..", "escape.txt")
	if _, err := safeReadFile(dir, outside); err == nil {
		t.Fatalf("path escape accepted")
	}
}
