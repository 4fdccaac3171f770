// Package tls builds server TLS configuration from files on disk and reloads
// it when the files change.
package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

type TLSConfig struct {
	Enabled        bool          `envconfig:"TLS_ENABLED" default:"false"`
	Port           string        `envconfig:"TLS_PORT" default:"8443"`
	CertFile       string        `envconfig:"TLS_CERT_FILE" default:"/etc/tls/tls.crt"`
	KeyFile        string        `envconfig:"TLS_KEY_FILE" default:"/etc/tls/tls.key"`
	ClientCAFile   string        `envconfig:"TLS_CLIENT_CA_FILE" default:""`
	ReloadInterval time.Duration `envconfig:"TLS_RELOAD_INTERVAL" default:"1m"`
}

// LoadTLSConfig reads the key pair and, when a client CA is configured,
// requires verified client certificates.
func LoadTLSConfig(cfg *TLSConfig, logger *zap.Logger) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.ClientCAFile != "" {
		pem, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("client CA %s holds no certificates", cfg.ClientCAFile)
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	logger.Info("TLS configuration loaded",
		zap.String("cert_file", cfg.CertFile),
		zap.Bool("mtls", cfg.ClientCAFile != ""))
	return tlsCfg, nil
}

// WatchCertificates polls the certificate files every cfg.ReloadInterval and
// hands a freshly loaded configuration to onReload when any of them changed.
// It returns when ctx is done.
func WatchCertificates(ctx context.Context, cfg *TLSConfig, onReload func(*tls.Config) error, logger *zap.Logger) {
	interval := cfg.ReloadInterval
	if interval <= 0 {
		interval = time.Minute
	}
	last := modTimes(cfg)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current := modTimes(cfg)
		if current == last {
			continue
		}

		newCfg, err := LoadTLSConfig(cfg, logger)
		if err != nil {
			// Files may be mid-rotation; retry on the next tick.
			logger.Warn("Failed to reload TLS configuration", zap.Error(err))
			continue
		}
		if err := onReload(newCfg); err != nil {
			logger.Error("TLS reload callback failed", zap.Error(err))
			continue
		}
		last = current
	}
}

type fileTimes [3]time.Time

func modTimes(cfg *TLSConfig) fileTimes {
	var t fileTimes
	for i, path := range []string{cfg.CertFile, cfg.KeyFile, cfg.ClientCAFile} {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil {
			t[i] = info.ModTime()
		}
	}
	return t
}
