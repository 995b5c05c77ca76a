package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type ServerOptions struct {
	APIAccessKey string
	CORSOrigins  []string
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, opts ServerOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/favicon.ico"},
	}))

	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	setupRoutes(r, handler, opts.APIAccessKey)

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		MaxAge:       12 * time.Hour,
	}

	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}

	return config
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)

	digestGroup := r.Group("/api/digest")
	{
		digestGroup.GET("", handler.GetDigest)
		digestGroup.GET("/sources-test", handler.GetDigest)
		digestGroup.GET("/rss", handler.GetDigestRSS)
		digestGroup.GET("/sources", handler.GetSources)
	}

	// Registry reload is only exposed when an access key is configured
	if apiAccessKey != "" {
		protected := r.Group("/api/digest")
		protected.Use(authMiddleware(apiAccessKey))
		protected.POST("/sources/reload", handler.APIReloadSources)
		slog.Info("Protected API endpoints enabled")
	} else {
		slog.Info("Protected API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/api/stocks/ai", handler.GetStocks)

	r.GET("/api/cms/:collection", handler.GetCMSCollection)
	r.GET("/api/cms/:collection/:id", handler.GetCMSDocument)
	r.GET("/api/cms-slug/:collection/:slug", handler.GetCMSDocumentBySlug)

	r.POST("/api/newsletter/subscribe", handler.PostNewsletterSubscribe)

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"digest":     "/api/digest?windowHours=&limit=&sources=&presetId=&google*=",
			"digest_rss": "/api/digest/rss",
			"sources":    "/api/digest/sources",
			"stocks":     "/api/stocks/ai?refresh=&debug=",
			"cms":        "/api/cms/<collection>[/<id>]",
			"cms_slug":   "/api/cms-slug/<collection>/<slug>",
			"newsletter": "/api/newsletter/subscribe (POST)",
			"health":     "/health",
		}

		if apiAccessKey != "" {
			endpoints["reload"] = "/api/digest/sources/reload (POST, requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "News Digest",
			"version":     handler.version,
			"description": "News digest aggregation with stock quotes, CMS proxy and newsletter signup",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware creates authentication middleware for protected endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
