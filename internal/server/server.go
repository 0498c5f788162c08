// Package server exposes telemetry and control for a running link over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/robolink/internal/auth"
	"github.com/danmuck/robolink/internal/observability"
	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/danmuck/robolink/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Sender queues outbound messages for the link's poll loop.
type Sender interface {
	Enqueue(msg protocol.Message) error
}

type Options struct {
	Name        string
	Addr        string
	CorsOrigins []string
	Recorder    *telemetry.Recorder
	Outbox      Sender
	Table       *codes.Table

	// ControlToken, when set, is required as a bearer token on /control.
	ControlToken string
}

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	recorder *telemetry.Recorder
	outbox   Sender
	table    *codes.Table
	guard    auth.Validator
	router   *gin.Engine
	http     *http.Server
}

func New(opts Options) *Server {
	observability.RegisterMetrics()
	if opts.Name == "" {
		opts.Name = "robolink"
	}
	if opts.Recorder == nil {
		opts.Recorder = telemetry.NewRecorder(telemetry.DefaultPIDHistory, telemetry.DefaultFrontOffset)
	}
	if opts.Table == nil {
		opts.Table = codes.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.ComponentLogger(opts.Name, "http")))
	r.Use(observability.RequestMetricsMiddleware(opts.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:     opts.Name,
		Addr:     opts.Addr,
		Appeared: time.Now(),
		recorder: opts.Recorder,
		outbox:   opts.Outbox,
		table:    opts.Table,
		router:   r,
	}
	if opts.ControlToken != "" {
		s.guard = auth.StaticToken{Token: opts.ControlToken}
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve blocks until ctx is done, then shuts the listener down.
func (s *Server) Serve(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("server.Serve listening addr=%s", s.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Warn().Msgf("server.Serve shutdown err=%v", err)
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
