package router

import (
	"fmt"
	"net/http"
	"time"

	"localglobal-go/internal/config"
	"localglobal-go/internal/database"
	"localglobal-go/internal/handlers"
	"localglobal-go/internal/models"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":      "Too many requests. Try again later.",
		"retryAfter": time.Until(info.ResetTime).Round(time.Second).String(),
	})
}

// Setup builds the engine serving the task for protocol over stimuli.
func Setup(log *zap.Logger, protocol *models.Protocol, stimuli []models.StimulusRecord) *gin.Engine {
	serverConf := config.Conf.Server

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(serverConf.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   serverConf.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(config.Conf.Retention.MaxAge.Seconds()),
	})
	router.Use(sessions.Sessions("lgtsession", store))

	router.Use(NonceMiddleware())
	router.Use(CSRFProtection())
	router.Use(RunLoaderMiddleware(log))

	router.Use(func(c *gin.Context) {
		nonce, _ := c.Get(CspNonceContextKey)
		csp := fmt.Sprintf(
			"default-src 'self'; script-src 'self' https://cdn.jsdelivr.net 'nonce-%s'; style-src 'self' 'unsafe-inline'; img-src 'self' data:",
			nonce,
		)
		c.Header("Content-Security-Policy", csp)
		c.Next()
	})

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "same-origin",
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
	})

	if serverConf.StaticDir != "" {
		router.Static("/assets", serverConf.StaticDir)
	}

	taskHandler := handlers.NewTaskHandler(log, protocol, stimuli)
	resultsHandler := handlers.NewResultsHandler(log, taskHandler)

	limit := serverConf.StartRateLimit
	if limit == 0 {
		limit = 5
	}
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/", taskHandler.Home)
	router.GET("/healthz", healthz(log))

	taskRoutes := router.Group("/task")
	{
		taskRoutes.POST("/start", limiter, taskHandler.Start)
		taskRoutes.GET("/trial", taskHandler.NextTrial)
		taskRoutes.POST("/response", taskHandler.SubmitResponse)
		taskRoutes.GET("/summary", taskHandler.Summary)
		taskRoutes.GET("/results", resultsHandler.ShowResults)
		taskRoutes.GET("/export", taskHandler.Export)
	}

	return router
}

func healthz(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := database.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			log.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
