package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// SubjectHeader carries the sub claim of the caller to the upstream. Values
// sent by clients are dropped.
const SubjectHeader = "X-Authenticated-Subject"

const (
	healthPath  = "/healthz"
	metricsPath = "/metrics"
)

// Server protects an upstream with the access token middleware.
type Server struct {
	cfg        Config
	logger     logrus.FieldLogger
	handler    http.Handler
	middleware *jwtmiddleware.JWTMiddleware
}

// NewServer builds the gateway handler. Extra options are passed to the
// middleware after the gateway's own.
func NewServer(cfg Config, logger logrus.FieldLogger, opts ...jwtmiddleware.Option) (*Server, error) {
	target, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute URL", cfg.Upstream)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := core.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	middlewareOpts := append([]jwtmiddleware.Option{
		jwtmiddleware.WithLogger(logger),
		jwtmiddleware.WithMetrics(metrics),
		jwtmiddleware.WithExclusionUrls([]string{healthPath, metricsPath}),
	}, opts...)
	middleware, err := jwtmiddleware.New(cfg.Auth, middlewareOpts...)
	if err != nil {
		return nil, err
	}
	if !middleware.Ready() {
		logger.WithField("errors", middleware.Errors()).Warn("auth configuration is invalid, every request will be rejected")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", newProxy(target, logger))

	return &Server{
		cfg:        cfg,
		logger:     logger,
		handler:    middleware.CheckJWT(mux),
		middleware: middleware,
	}, nil
}

func newProxy(target *url.URL, logger logrus.FieldLogger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del(SubjectHeader)
			if identity, err := core.GetIdentity(pr.In.Context()); err == nil {
				if sub, ok := identity.Claims()["sub"].(string); ok {
					pr.Out.Header.Set(SubjectHeader, sub)
				}
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WithError(err).WithField("path", r.URL.Path).Error("upstream request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

// Handler returns the gateway handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is done, then shuts down within the configured
// timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("listen", s.cfg.Listen).Info("jwtgate listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
