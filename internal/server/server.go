// Package server exposes the chat relay over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-multierror"
	appconfig "github.com/lewisedginton/chat_relay/internal/config"
	"github.com/lewisedginton/chat_relay/internal/middleware"
	"github.com/lewisedginton/chat_relay/internal/monitoring"
	"github.com/lewisedginton/chat_relay/internal/relay"
	"github.com/lewisedginton/chat_relay/pkg/httpmiddleware"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/lewisedginton/chat_relay/pkg/metrics"
	"github.com/lewisedginton/chat_relay/pkg/utils"
	"github.com/unrolled/secure"
)

const shutdownTimeout = 30 * time.Second

// Server wires the relay, health probes and metrics onto a chi router.
type Server struct {
	cfg     *appconfig.AppConfig
	log     logger.Logger
	relay   *relay.Relay
	metrics *metrics.Metrics
	health  *monitoring.HealthMonitor
	server  *http.Server
}

// New creates a Server with all components initialized.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger, opts ...Option) (*Server, error) {
	o := buildOptions(opts)

	m := metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Metrics.EnableRelayMetrics, log)

	r, err := buildRelay(ctx, cfg, log, m, o)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay: %w", err)
	}

	var upstreamURL string
	if cfg.Health.ProbeUpstream && cfg.Generation.Backend == appconfig.BackendTextgen {
		upstreamURL = cfg.Generation.BaseURL
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		relay:   r,
		metrics: m,
		health: monitoring.NewHealthMonitor(monitoring.Config{
			Logger:           log,
			Version:          o.version,
			UpstreamURL:      upstreamURL,
			HTTPClient:       o.httpClient,
			Timeout:          cfg.Health.Timeout,
			FailureThreshold: cfg.Health.FailureThreshold,
		}),
	}

	s.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:        s.Router(),
		ReadTimeout:    cfg.HTTP.ReadTimeout(),
		WriteTimeout:   cfg.HTTP.WriteTimeout(),
		IdleTimeout:    cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	log.Info("HTTP server initialized",
		logger.IntField("http_port", cfg.HTTP.Port),
		logger.StringField("relay_path", cfg.RelayPath),
	)

	return s, nil
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	mw := httpmiddleware.DefaultConfig()
	mw.Logger = s.log
	mw.EnableLogging = true
	mw.Recoverer = middleware.Recovery(middleware.RecoveryConfig{
		Logger:           s.log,
		EnableStackTrace: true,
	})
	mw.CORS = &httpmiddleware.CORSConfig{
		AllowedMethods:     relay.AllowedMethods(),
		AllowedHeaders:     relay.AllowedHeaders(),
		AllowedOrigins:     []string{relay.AllowOrigin},
		ExposedHeaders:     []string{logger.CorrelationIDHeader},
		MaxAge:             300,
		OptionsPassthrough: true,
	}
	mw.Security = &secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	}
	if s.cfg.HTTP.StripPrefix != "" {
		mw.StripPrefix = s.cfg.HTTP.StripPrefix
		mw.EnableStripPrefix = true
	}
	httpmiddleware.ApplyToRouter(r, mw)
	r.Use(s.metrics.HTTPMiddleware())

	s.health.RegisterRoutes(r, s.cfg.Health.LivenessPath, s.cfg.Health.ReadinessPath)

	r.Post(s.cfg.RelayPath, s.handleRelay)
	r.Options(s.cfg.RelayPath, handlePreflight)

	return r
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxRequestBytes))
	if err != nil {
		log := logger.GetLoggerFromContext(r.Context(), s.log)
		log.Warn("Failed to read request body", logger.ErrorField(err))
		s.metrics.ObserveOutcome(relay.KindRequest.String())
		relay.BuildResponse(relay.Failure(relay.KindRequest, fmt.Errorf("read request body: %w", err))).Write(w)
		return
	}

	res := s.relay.Handle(r.Context(), relay.Invocation{Body: body})
	relay.BuildResponse(res).Write(w)
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	relay.PreflightResponse().Write(w)
}

// Listen starts the HTTP server. The returned channel receives the server
// error, or is closed after a clean Shutdown.
func (s *Server) Listen() <-chan error {
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.log.Info("Starting HTTP server", logger.StringField("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()
	return errChan
}

// Run serves until ctx is cancelled or a listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listeners := []<-chan error{s.Listen()}
	if s.cfg.Metrics.ExposeMetrics {
		listeners = append(listeners, s.metrics.Listen(s.cfg.Metrics.Port))
	}
	errChan := utils.MergeErrorChans(listeners...)

	var runErr error
	select {
	case err, ok := <-errChan:
		if ok {
			runErr = err
			s.log.Error("Listener failed", logger.ErrorField(err))
		}
	case <-ctx.Done():
		s.log.Info("Shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout) //nolint:contextcheck // ctx is already cancelled
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // see above
		s.log.Error("Graceful shutdown failed", logger.ErrorField(err))
		runErr = multierror.Append(runErr, err)
	}

	for err := range errChan {
		runErr = multierror.Append(runErr, err)
	}
	return runErr
}

// Shutdown marks the service not ready and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()

	var result error
	if err := s.server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := s.metrics.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("metrics shutdown error: %w", err))
	}
	s.log.Info("HTTP server stopped")
	return result
}
