package server

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/completion"
	"interview-relay/internal/credentials"
	"interview-relay/internal/models"
	"interview-relay/internal/profile"
	"interview-relay/internal/realtime"
	"interview-relay/internal/sessions"
	"interview-relay/internal/shared/config"
	"interview-relay/internal/shared/metrics"
	"interview-relay/internal/shared/server/middleware"
	"interview-relay/internal/shared/server/respond"
	"interview-relay/internal/usage"
)

const (
	rateGroupDefault  = "DEFAULT"
	rateGroupValidate = "VALIDATE"
	validateBurst     = 5
)

// RouterDeps carries the handlers mounted on the router.
type RouterDeps struct {
	Config      config.Config
	Profile     *profile.Handler
	Sessions    *sessions.Handler
	Completion  *completion.Handler
	Usage       *usage.Handler
	Models      *models.Handler
	Credentials *credentials.Handler
	Realtime    *realtime.Handler
	// Now drives the rate limiter clock; nil means time.Now.
	Now func() time.Time
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: rateGroupFor,
			Limiter:  middleware.NewRateLimiter(deps.Now),
			Rules: map[string]middleware.RateLimitRule{
				rateGroupValidate: {Rate: deps.Config.ValidateRateLimit, Burst: validateBurst},
			},
		}),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	for _, h := range []interface{ RegisterRoutes(gin.IRoutes) }{
		deps.Profile,
		deps.Sessions,
		deps.Completion,
		deps.Usage,
		deps.Models,
		deps.Credentials,
		deps.Realtime,
	} {
		h.RegisterRoutes(r)
	}

	return r
}

// rateGroupFor puts the credential checks, which each cost an upstream
// round-trip or a key comparison, in a stricter bucket.
func rateGroupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/validate-api-key", "/validate-license":
		return rateGroupValidate
	default:
		return rateGroupDefault
	}
}

// Addr joins host and port into a listen address.
func Addr(host, port string) string {
	if port == "" {
		port = "5050"
	}
	return net.JoinHostPort(host, port)
}
