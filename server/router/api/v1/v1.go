package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/hrygo/leanmind/internal/profile"
	"github.com/hrygo/leanmind/plugin/ai/session"
	"github.com/hrygo/leanmind/server/internal/observability"
	"github.com/hrygo/leanmind/server/middleware"
	"github.com/hrygo/leanmind/server/service/relay"
)

// Relay endpoints. The root path serves clients that post to the bare host.
const (
	RelayRootPath = "/"
	RelayPath     = "/api/v1/chat"
	MetricsPath   = "/api/v1/metrics"
	// SessionAPIPrefix is where the session sub-interface is mounted.
	SessionAPIPrefix = "/internal/sessions"
)

type APIV1Service struct {
	Profile  *profile.Profile
	Relay    *relay.Service
	Sessions session.SessionService
	Metrics  *observability.Metrics
}

func NewAPIV1Service(profile *profile.Profile, relayService *relay.Service, sessions session.SessionService, metrics *observability.Metrics) *APIV1Service {
	if metrics == nil {
		metrics = observability.GlobalMetrics()
	}
	return &APIV1Service{
		Profile:  profile,
		Relay:    relayService,
		Sessions: sessions,
		Metrics:  metrics,
	}
}

// RegisterRoutes registers the relay, metrics and, when enabled, the session sub-interface.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	var relayMiddleware []echo.MiddlewareFunc
	if s.Profile.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(s.Profile.RateLimit, s.Profile.RateBurst)
		relayMiddleware = append(relayMiddleware, middleware.RateLimit(limiter, s.Metrics.RecordRateLimited))
	}

	echoServer.Any(RelayRootPath, s.Chat, relayMiddleware...)
	echoServer.Any(RelayPath, s.Chat, relayMiddleware...)
	echoServer.GET(MetricsPath, s.GetMetrics)

	if s.Profile.SessionAPIEnabled {
		group := echoServer.Group(SessionAPIPrefix + "/:sessionId")
		group.Any("/history", s.GetSessionHistory)
		group.Any("/add", s.AddSessionMessage)
		group.Any("/*", s.sessionNotFound)
	}
}
