package ginserver

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentdetail/internal/app/middleware"
	"rentdetail/internal/infra/config"
	"rentdetail/internal/infra/obs"
)

//go:embed templates/*.html
var templatesFS embed.FS

const OperatorTokenHeader = "X-Operator-Token"

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Detail(c *gin.Context)
}

type DetailPageHTTP interface {
	Show(c *gin.Context)
}

type AdminHTTP interface {
	InvalidateCache(c *gin.Context)
}

type Handlers struct {
	Listing    ListingHTTP
	DetailPage DetailPageHTTP
	Admin      AdminHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", OperatorTokenHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.DetailPage != nil {
		router.GET("/rents/:id", h.DetailPage.Show)
	}

	api := router.Group("/api/v1")
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Catalog)
		api.GET("/listings/:id", h.Listing.Detail)
	}
	if h.Admin != nil {
		admin := api.Group("/admin", operatorToken())
		admin.POST("/cache/invalidate", h.Admin.InvalidateCache)
	}
	return router
}

// operatorToken moves the presented operator token into the request context.
func operatorToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(OperatorTokenHeader))
		if token == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}
		if token != "" {
			c.Request = c.Request.WithContext(middleware.WithOperatorToken(c.Request.Context(), token))
		}
		c.Next()
	}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
