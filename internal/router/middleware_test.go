package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"localglobal-go/internal/config"
	"localglobal-go/internal/database"
	"localglobal-go/internal/handlers"
	logging "localglobal-go/internal/logging"
	"localglobal-go/internal/models"
	"localglobal-go/internal/repository"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunLoaderMiddleware_TagsQueries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "info",
	}, zap.New(core))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		database.DB = previous
	})

	trials := []models.TrialSpec{{FilePath: "stimulus/a.png", CorrectAnswer: "1", StimulusNumber: "1"}}
	run, err := repository.CreateRun(context.Background(), trials, []models.TransitionType{models.TransitionWarmup}, 1)
	if err != nil {
		t.Fatal(err)
	}
	logs.TakeAll()

	engine := gin.New()
	engine.Use(sessions.Sessions("test", cookie.NewStore([]byte("test-secret"))))
	engine.Use(func(c *gin.Context) {
		sessions.Default(c).Set(handlers.RunSessionKey, run.ID)
		c.Next()
	})
	engine.Use(RunLoaderMiddleware(zap.NewNop()))

	var loaded bool
	var taggedID string
	engine.GET("/", func(c *gin.Context) {
		_, loaded = c.Get(handlers.RunContextKey)
		taggedID, _ = logging.RunIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !loaded || taggedID != run.ID {
		t.Fatalf("loaded = %v, tagged run = %q, want %q", loaded, taggedID, run.ID)
	}
	queries := logs.FilterMessage("Query").All()
	if len(queries) == 0 {
		t.Fatal("run lookup was not logged")
	}
	for _, q := range queries {
		if got := q.ContextMap()["run_id"]; got != run.ID {
			t.Errorf("query %v run_id = %v, want %s", q.ContextMap()["sql"], got, run.ID)
		}
	}
}
