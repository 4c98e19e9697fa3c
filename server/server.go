package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/hrygo/leanmind/internal/profile"
	"github.com/hrygo/leanmind/plugin/ai"
	"github.com/hrygo/leanmind/plugin/ai/cache"
	"github.com/hrygo/leanmind/plugin/ai/session"
	"github.com/hrygo/leanmind/plugin/ai/timeout"
	"github.com/hrygo/leanmind/server/internal/observability"
	"github.com/hrygo/leanmind/server/middleware"
	apiv1 "github.com/hrygo/leanmind/server/router/api/v1"
	"github.com/hrygo/leanmind/server/service/relay"
	"github.com/hrygo/leanmind/store"
	"github.com/hrygo/leanmind/store/db"
)

// BodyLimit caps request bodies accepted by the server.
const BodyLimit = "1M"

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	listener   net.Listener

	// Session backends, closed on shutdown when set.
	store       *store.Store
	cache       *cache.Service
	redisClient *redis.Client
}

// NewServer wires the session store, the relay and the HTTP routes. llm is the completion client.
func NewServer(ctx context.Context, profile *profile.Profile, llm ai.LLMService) (*Server, error) {
	s := &Server{
		Profile: profile,
	}

	sessions, err := s.newSessionService(ctx)
	if err != nil {
		s.closeBackends()
		return nil, err
	}

	metrics := observability.GlobalMetrics()
	relayService := relay.NewService(sessions, llm, relay.Config{
		SystemPrompt:             profile.SystemPrompt,
		CompletionTimeout:        profile.CompletionTimeout,
		PersistTimeout:           profile.PersistTimeout,
		MaxConcurrentCompletions: profile.MaxConcurrentCompletions,
	}, metrics)

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = apiv1.HTTPErrorHandler

	echoServer.Pre(middleware.CORS())
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	echoServer.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			slog.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Int64("latency_ms", v.Latency.Milliseconds()),
				slog.String(observability.LogFieldRequestID, v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	}))
	echoServer.Use(echomiddleware.BodyLimit(BodyLimit))
	s.echoServer = echoServer

	// Register healthz endpoint.
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiV1Service := apiv1.NewAPIV1Service(profile, relayService, sessions, metrics)
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

// newSessionService builds the session backend selected by the profile.
func (s *Server) newSessionService(ctx context.Context) (session.SessionService, error) {
	p := s.Profile

	if p.IsRemoteStore() {
		slog.Info("using remote session store", slog.String("url", p.SessionStoreURL))
		return session.NewRemoteSessionService(p.SessionStoreURL, &http.Client{Timeout: timeout.SessionClientTimeout}), nil
	}

	switch p.Driver {
	case "memory":
		slog.Warn("using in-memory session store, transcripts are lost on restart")
		return session.NewMemorySessionStore(p.MaxHistory), nil
	case "redis":
		client, err := session.NewRedisClient(ctx, p.DSN)
		if err != nil {
			return nil, err
		}
		s.redisClient = client
		return session.NewRedisSessionStore(client, session.DefaultRedisKeyPrefix, p.MaxHistory), nil
	default:
		driver, err := db.NewDBDriver(p)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create db driver")
		}
		s.store = store.New(driver, p)
		if err := s.store.Migrate(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to migrate")
		}
		s.cache = cache.NewService(cache.DefaultServiceConfig())
		return session.NewSessionStore(s.store, s.cache, p.MaxHistory), nil
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.listener = listener
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()

	slog.Info("start HTTP server", slog.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ShutdownTimeout)
	defer cancel()

	// Shutdown echo server.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	s.closeBackends()
	slog.Info("server stopped properly", slog.Time("at", time.Now()))
}

func (s *Server) closeBackends() {
	if s.cache != nil {
		s.cache.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			slog.Error("failed to close redis client", slog.String("error", err.Error()))
		}
	}
}
