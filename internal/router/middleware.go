package router

import (
	"errors"

	"localglobal-go/internal/handlers"
	logging "localglobal-go/internal/logging"
	"localglobal-go/internal/repository"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunLoaderMiddleware checks for a run ID in the session. If found, it loads
// the run and adds it to the context, and the request's database logs carry
// the run ID. A run that no longer exists (swept by retention) is cleared
// from the session.
func RunLoaderMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		runID, ok := session.Get(handlers.RunSessionKey).(string)
		if !ok {
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(logging.WithRunID(c.Request.Context(), runID))
		run, err := repository.GetRun(c.Request.Context(), runID)
		if err != nil {
			if errors.Is(err, repository.ErrRunNotFound) {
				log.Info("Clearing stale run from session", zap.String("runID", runID))
				session.Delete(handlers.RunSessionKey)
				if err := session.Save(); err != nil {
					log.Error("Failed to save session", zap.Error(err))
				}
			} else {
				log.Error("Failed to load task run", zap.Error(err), zap.String("runID", runID))
			}
			c.Next()
			return
		}

		c.Set(handlers.RunContextKey, run)
		c.Next()
	}
}
