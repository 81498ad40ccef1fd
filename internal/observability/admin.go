package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/basp-mesh/basp/internal/auth"
	"github.com/basp-mesh/basp/internal/engine"
)

// AdminServer is the read-only HTTP surface for operability: routing
// table and published-actor snapshots plus Prometheus metrics. It never
// feeds decisions back into the engine.
type AdminServer struct {
	router *gin.Engine
}

// NewAdminServer builds the admin router for eng, identified as node in
// request logs and metrics labels. If validator is non-nil, every route
// except /healthz requires a bearer token it accepts.
func NewAdminServer(node string, eng *engine.Engine, logger zerolog.Logger, corsOrigins []string, validator auth.Validator) *AdminServer {
	RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger, node))
	r.Use(RequestMetricsMiddleware(node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	authed := r.Group("/")
	if validator != nil {
		authed.Use(bearerAuth(validator))
	}
	authed.GET("/routes", routesHandler(eng))
	authed.GET("/published", publishedHandler(eng))
	authed.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &AdminServer{router: r}
}

// Router exposes the underlying *gin.Engine, e.g. for http.Server wiring.
func (s *AdminServer) Router() *gin.Engine { return s.router }

func bearerAuth(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if err := v.Validate(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func routesHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		peers := eng.Routes().DirectPeers()
		direct := make([]gin.H, 0, len(peers))
		for _, p := range peers {
			direct = append(direct, gin.H{"node": p.Node.String(), "handle": uint64(p.Handle)})
		}

		indirect := make(map[string][]string)
		for target, hops := range eng.Routes().IndirectSnapshot() {
			list := make([]string, 0, len(hops))
			for _, h := range hops {
				list = append(list, h.String())
			}
			indirect[target.String()] = list
		}

		c.JSON(http.StatusOK, gin.H{"direct": direct, "indirect": indirect})
	}
}

func publishedHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := eng.Published().Snapshot()
		out := make([]gin.H, 0, len(snap))
		for port, entry := range snap {
			interfaces := make([]string, 0, len(entry.Interface))
			for i := range entry.Interface {
				interfaces = append(interfaces, i)
			}
			out = append(out, gin.H{
				"port":       port,
				"actor":      uint32(entry.Actor),
				"interfaces": interfaces,
			})
		}
		c.JSON(http.StatusOK, gin.H{"published": out})
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
