// Package server owns the HTTP listener lifecycle: plain HTTP, manual TLS,
// or automatic certificates, with graceful shutdown on context cancel.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAuto

	TLSModeAuto   = "auto"
	TLSModeManual = "manual"

	shutdownTimeout = 10 * time.Second
)

type Server struct {
	Host string
	Port string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

// Run serves handler until ctx is canceled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(srv.Host, srv.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.listenAndServe(ctx, httpServer)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func (srv *Server) listenAndServe(ctx context.Context, httpServer *http.Server) error {
	if !srv.TLS.Enabled {
		slog.InfoContext(ctx, "listening", "address", "http://"+httpServer.Addr)

		return httpServer.ListenAndServe()
	}

	switch srv.TLS.Mode {
	case TLSModeAuto:
		if srv.TLS.AutoCert == nil || len(srv.TLS.AutoCert.Domains) == 0 {
			return errors.New("autocert tls requires at least one domain")
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(srv.TLS.AutoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(srv.TLS.AutoCert.Domains...),
			Email:      srv.TLS.AutoCert.Email,
		}

		httpServer.TLSConfig = &tls.Config{
			GetCertificate: manager.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}

		// Port 80 answers ACME HTTP-01 challenges and redirects the rest.
		go func() {
			err := http.ListenAndServe( //nolint:gosec
				net.JoinHostPort(srv.Host, "80"),
				manager.HTTPHandler(nil),
			)
			if err != nil {
				slog.ErrorContext(ctx, "failed to serve acme challenges", "error", err)
			}
		}()

		slog.InfoContext(ctx, "listening", "address", domainsToHTTPSAddress(srv.TLS.AutoCert.Domains))

		return httpServer.ListenAndServeTLS("", "")
	case TLSModeManual:
		if srv.TLS.CertFile == "" || srv.TLS.KeyFile == "" {
			return errors.New("manual tls requires a cert file and a key file")
		}

		slog.InfoContext(ctx, "listening", "address", "https://"+httpServer.Addr)

		return httpServer.ListenAndServeTLS(srv.TLS.CertFile, srv.TLS.KeyFile)
	default:
		return fmt.Errorf("unknown tls mode %q", srv.TLS.Mode)
	}
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))

	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
