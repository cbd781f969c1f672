// Command server is the HTTP/2 (+ shared-port HTTP/1.1) server binary:
// flag/config resolution, logger construction, route registration, and
// the accept loop, wired together as a single cobra-based command.
package main

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "go.uber.org/automaxprocs"

	"github.com/coreh2/h2"
	"github.com/coreh2/h2/dispatch"
	"github.com/coreh2/h2/internal/config"
	"github.com/coreh2/h2/internal/logging"
	"github.com/coreh2/h2/internal/tlsconfig"
	"github.com/coreh2/h2/router"
)

// gracefulShutdownTimeout bounds how long a SIGINT/SIGTERM waits for
// in-flight connections to drain before Shutdown gives up on the
// slowest of them.
const gracefulShutdownTimeout = 30 * time.Second

// defaultStaticRoot is served as a catch-all GET handler when the
// directory exists in the working directory.
const defaultStaticRoot = "public"

var flags config.Flags

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "HTTP/2 server with shared-port HTTP/1.1 fallback",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(flags)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.ConfigPath, "config", "", "JSON config path")
	f.StringVar(&flags.Host, "host", "", "listen host (default 0.0.0.0)")
	f.IntVar(&flags.Port, "port", 0, "listen port (default 8080)")
	f.BoolVar(&flags.TLSEnabled, "tls-enabled", false, "serve TLS with ALPN h2/http1.1")
	f.StringVar(&flags.TLSCertFile, "tls-cert-file", "", "TLS certificate file")
	f.StringVar(&flags.TLSKeyFile, "tls-key-file", "", "TLS private key file")
	f.Int64Var(&flags.MaxBodySize, "max-body-size", 0, "maximum request body size in bytes (>=1024)")
	f.Int64Var(&flags.MaxHeadersSize, "max-headers-size", 0, "maximum header list size in bytes (>=1024)")
	f.IntVar(&flags.TimeoutSeconds, "timeout", 0, "read and keep-alive idle timeout in seconds (>=1)")
	f.StringVar(&flags.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	f.StringVar(&flags.LogFormat, "log-format", "", "log format: text|json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRouter builds the binary's route table: the middleware chain, the
// health endpoint, and (when the directory is present) static file
// serving as a catch-all.
func newRouter(logger *zap.Logger) *router.Router {
	rt := router.New()
	rt.Use(router.Recover(logger))
	rt.Use(router.Logging(logger))
	rt.Use(router.Metrics())

	rt.Handle("GET", "/healthz", func(req *h2.Request) *h2.Response {
		resp := h2.NewResponse(200)
		resp.SetHeader("content-type", "text/plain; charset=utf-8")
		resp.SetBody([]byte("ok\n"))
		return resp
	})

	if st, err := os.Stat(defaultStaticRoot); err == nil && st.IsDir() {
		rt.HandlePrefix("GET", "/", router.StaticFiles(defaultStaticRoot))
		logger.Info("serving static files", zap.String("root", defaultStaticRoot))
	}

	return rt
}

// listenerTLSConfig picks between operator-provided certificate files
// and autocert-managed certificates: an explicit cert/key pair wins;
// with none configured, the config's tls.domains drive an ACME manager.
func listenerTLSConfig(tlsCfg config.TLS) (*tls.Config, error) {
	if tlsCfg.CertFile != "" {
		out, err := tlsconfig.FromStaticFiles(tlsCfg)
		if err != nil {
			return nil, errors.Wrap(err, "loading TLS material")
		}
		return out, nil
	}
	return tlsconfig.FromAutocert(tlsCfg.Domains, tlsCfg.CacheDir), nil
}

func run(flags config.Flags) error {
	cfg, err := config.Load(flags)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	defer logger.Sync()

	srv := &dispatch.Server{
		Router:         newRouter(logger),
		MaxBodySize:    uint64(cfg.Limits.MaxBodySize),
		Logger:         logger,
		MaxHeadersSize: uint32(cfg.Limits.MaxHeadersSize),
		IdleTimeout:    time.Duration(cfg.Limits.TimeoutSeconds) * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}

	if cfg.Server.TLS.Enabled {
		tlsCfg, err := listenerTLSConfig(cfg.Server.TLS)
		if err != nil {
			return err
		}
		ln = tls.NewListener(ln, tlsCfg)
	}

	logger.Info("listening", zap.String("addr", addr), zap.Bool("tls", cfg.Server.TLS.Enabled))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var result *multierror.Error
	select {
	case err := <-errCh:
		result = multierror.Append(result, err)
		if cerr := ln.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}
		return result.ErrorOrNil()
	case <-sigCh:
		logger.Info("shutdown signal received")
	}

	if err := ln.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, net.ErrClosed) {
		result = multierror.Append(result, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	logger.Info("draining connections", zap.Duration("timeout", gracefulShutdownTimeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}
