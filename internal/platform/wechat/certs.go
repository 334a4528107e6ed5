package wechat

import (
	"context"
	"errors"
	"os"

	cfgpkg "github.com/fatflowers/paygate/pkg/config"
)

// CertificateSource supplies the mutual-TLS client certificate required by
// the gateway's refund API. Modeled as an injected capability so certificate
// material can come from an external secret store.
type CertificateSource interface {
	ClientCertificate(ctx context.Context) (certPath, keyPath string, err error)
}

// FileCertificateSource reads certificate paths from configuration.
type FileCertificateSource struct {
	certFile string
	keyFile  string
}

func NewFileCertificateSource(cfg *cfgpkg.Config) *FileCertificateSource {
	return &FileCertificateSource{certFile: cfg.WeChatPay.CertFile, keyFile: cfg.WeChatPay.KeyFile}
}

func (s *FileCertificateSource) ClientCertificate(_ context.Context) (string, string, error) {
	if s.certFile == "" || s.keyFile == "" {
		return "", "", errors.New("client certificate not configured")
	}
	if _, err := os.Stat(s.certFile); err != nil {
		return "", "", err
	}
	if _, err := os.Stat(s.keyFile); err != nil {
		return "", "", err
	}
	return s.certFile, s.keyFile, nil
}
