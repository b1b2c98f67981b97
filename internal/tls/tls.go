package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tlsCaCrt = "tls_ca.crt"
	tlsCrt   = "tls.crt"
	tlsKey   = "tls.key"
)

// AutoGen controls self-signed certificate generation.
type AutoGen struct {
	CommonName   string   `mapstructure:"common_name"`
	Organization string   `mapstructure:"organization"`
	DNSNames     []string `mapstructure:"dns_names"`
	IPAddresses  []string `mapstructure:"ip_addresses"`
	ValidDays    int      `mapstructure:"valid_days"`
}

// Config describes the daemon's TLS settings. Either explicit cert/key
// files or a directory (with optional auto-generation) must be given.
type Config struct {
	Enabled      bool     `mapstructure:"enabled"`
	CertFile     string   `mapstructure:"cert_file"`
	KeyFile      string   `mapstructure:"key_file"`
	Dir          string   `mapstructure:"dir"`
	AutoGenerate bool     `mapstructure:"auto_generate"`
	MinVersion   string   `mapstructure:"min_version"`
	MaxVersion   string   `mapstructure:"max_version"`
	AutoGen      *AutoGen `mapstructure:"auto_gen"`
}

func parseVersion(ver string) (uint16, bool) {
	switch ver {
	case "", "default":
		return tls.VersionTLS13, false
	case "1.2", "TLS1.2", "tls1.2":
		return tls.VersionTLS12, true
	case "1.3", "TLS1.3", "tls1.3":
		return tls.VersionTLS13, true
	default:
		return 0, false
	}
}

func (c *Config) versions() (minVer uint16, maxVer uint16) {
	minVer = tls.VersionTLS13
	maxVer = tls.VersionTLS13
	if v, ok := parseVersion(c.MinVersion); ok {
		minVer = v
	}
	if v, ok := parseVersion(c.MaxVersion); ok {
		maxVer = v
	}
	return
}

// safeReadFile reads file content safely within base directory.
func safeReadFile(baseDir, p string) ([]byte, error) {
	clean := filepath.Clean(p)
	if baseDir != "" {
		absBase, _ := filepath.Abs(baseDir)
		absFile, _ := filepath.Abs(clean)
		if !strings.HasPrefix(absFile, absBase+string(filepath.Separator)) && absFile != absBase {
			return nil, errors.New("file path outside of allowed directory")
		}
	}
	return os.ReadFile(clean)
}

// getCertificateFunc loads the key pair per handshake so rotated files are
// picked up without a restart.
func getCertificateFunc(certFile, keyFile string) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	baseDir := filepath.Dir(certFile)
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		readCert, err := safeReadFile(baseDir, certFile)
		if err != nil {
			return nil, err
		}
		readKey, err := safeReadFile(baseDir, keyFile)
		if err != nil {
			return nil, err
		}
		certificate, err := tls.X509KeyPair(readCert, readKey)
		return &certificate, err
	}
}

// Setup builds a *tls.Config from the daemon settings. Returns nil when TLS
// is disabled.
func Setup(c *Config) (*tls.Config, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	minVer, maxVer := c.versions()

	if c.CertFile != "" && c.KeyFile != "" {
		return newConfig(c.CertFile, c.KeyFile, minVer, maxVer), nil
	}

	if c.Dir != "" {
		keyPath := filepath.Join(c.Dir, tlsKey)
		certPath := filepath.Join(c.Dir, tlsCrt)
		if c.AutoGenerate && !certificatesExist(certPath, keyPath) {
			if err := c.generate(); err != nil {
				return nil, fmt.Errorf("certificate generation failed: %w", err)
			}
		}
		return newConfig(certPath, keyPath, minVer, maxVer), nil
	}

	return nil, errors.New("TLS enabled but no valid certificate configuration found")
}

func newConfig(certPath, keyPath string, minVer, maxVer uint16) *tls.Config {
	// #nosec G402 TLS backward compatibility considered
	return &tls.Config{
		GetCertificate: getCertificateFunc(certPath, keyPath),
		MinVersion:     minVer,
		MaxVersion:     maxVer,
	}
}

func certificatesExist(certPath, keyPath string) bool {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	return certErr == nil && keyErr == nil
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func orDefaultSlice(value, def []string) []string {
	if len(value) == 0 {
		return def
	}
	return value
}

func (c *Config) generate() error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	ag := c.AutoGen
	if ag == nil {
		ag = &AutoGen{}
	}
	validDays := ag.ValidDays
	if validDays <= 0 {
		validDays = 365 * 5
	}
	return GenerateSelfSignedCert(CertConfig{
		CommonName:   orDefault(ag.CommonName, "localhost"),
		Organization: orDefault(ag.Organization, "craftd"),
		DNSNames:     orDefaultSlice(ag.DNSNames, []string{"localhost", "127.0.0.1"}),
		IPAddresses:  orDefaultSlice(ag.IPAddresses, []string{"127.0.0.1"}),
		NotAfter:     time.Now().AddDate(0, 0, validDays),
		CertPath:     filepath.Join(c.Dir, tlsCrt),
		KeyPath:      filepath.Join(c.Dir, tlsKey),
		CACertPath:   filepath.Join(c.Dir, tlsCaCrt),
	})
}
