// Package tlsconfig builds the *tls.Config the port dispatcher's
// listener wraps connections with, advertising h2 and http/1.1 via
// ALPN so dispatch.Server.serveConn can pick the right engine off
// ConnectionState().NegotiatedProtocol.
//
// Uses golang.org/x/crypto/acme/autocert for managed certificates: an
// autocert.Manager backed by a directory cache, consulted through
// GetCertificate.
package tlsconfig

import (
	"crypto/tls"

	"golang.org/x/crypto/acme/autocert"

	"github.com/coreh2/h2"
	"github.com/coreh2/h2/internal/config"
)

// FromStaticFiles loads a certificate/key pair named by the config's
// server.tls section, for deployments that manage their own certs.
func FromStaticFiles(tlsCfg config.TLS) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{h2.ALPNProtoH2, h2.ALPNProtoHTTP11},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// FromAutocert builds a *tls.Config backed by an ACME autocert.Manager
// that only issues certificates for hostnames, caching them under
// cacheDir. Only the *tls.Config is returned, not the manager, so no
// HTTP-01 challenge handler is served; the manager's GetCertificate
// answers the TLS-ALPN-01 challenge instead.
func FromAutocert(hostnames []string, cacheDir string) *tls.Config {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(hostnames...),
		Cache:      autocert.DirCache(cacheDir),
	}

	cfg := m.TLSConfig()
	cfg.NextProtos = append([]string{h2.ALPNProtoH2, h2.ALPNProtoHTTP11}, cfg.NextProtos...)
	return cfg
}
