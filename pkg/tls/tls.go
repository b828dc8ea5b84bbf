package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
	"go.uber.org/zap"
)

type TLSConfig struct {
	Enabled    bool   `envconfig:"TLS_ENABLED" default:"false"`
	SocketPath string `envconfig:"SPIRE_SOCKET_PATH" default:"unix:///run/spire/sockets/agent.sock"`
	// TrustDomain restricts clients to one SPIFFE trust domain. Empty
	// accepts any authenticated workload.
	TrustDomain string `envconfig:"SPIFFE_TRUST_DOMAIN"`
}

// Source serves the workload's X.509 SVID to an HTTP server and keeps it
// rotated through the SPIRE agent.
type Source struct {
	x509   *workloadapi.X509Source
	logger *zap.Logger
}

// Load connects to the SPIRE workload API and returns the mTLS server
// config. It returns nil, nil when TLS is disabled.
func Load(ctx context.Context, cfg TLSConfig, logger *zap.Logger) (*tls.Config, *Source, error) {
	if !cfg.Enabled {
		logger.Info("TLS is disabled")
		return nil, nil, nil
	}

	authorizer, err := authorizer(cfg.TrustDomain)
	if err != nil {
		return nil, nil, err
	}

	x509, err := workloadapi.NewX509Source(ctx,
		workloadapi.WithClientOptions(workloadapi.WithAddr(cfg.SocketPath)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create X509Source: %w", err)
	}

	tlsCfg := tlsconfig.MTLSServerConfig(x509, x509, authorizer)
	tlsCfg.MinVersion = tls.VersionTLS12

	logger.Info("SPIRE TLS configuration loaded",
		zap.String("socket_path", cfg.SocketPath),
		zap.String("trust_domain", cfg.TrustDomain))

	return tlsCfg, &Source{x509: x509, logger: logger}, nil
}

func authorizer(trustDomain string) (tlsconfig.Authorizer, error) {
	if trustDomain == "" {
		return tlsconfig.AuthorizeAny(), nil
	}
	td, err := spiffeid.TrustDomainFromString(trustDomain)
	if err != nil {
		return nil, fmt.Errorf("invalid trust domain %q: %w", trustDomain, err)
	}
	return tlsconfig.AuthorizeMemberOf(td), nil
}

// Watch logs the SVID expiry every interval until ctx is done. Rotation
// itself is handled by the workload API.
func (s *Source) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svid, err := s.x509.GetX509SVID()
			if err != nil {
				s.logger.Error("Failed to get X509 SVID", zap.Error(err))
				continue
			}
			notAfter := svid.Certificates[0].NotAfter
			s.logger.Info("Certificate status",
				zap.String("spiffe_id", svid.ID.String()),
				zap.Time("expiry", notAfter),
				zap.Duration("ttl", time.Until(notAfter)))
		}
	}
}

func (s *Source) Close() error {
	if s == nil || s.x509 == nil {
		return nil
	}
	return s.x509.Close()
}
