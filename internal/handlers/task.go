// internal/handlers/task.go
package handlers

import (
	"errors"
	"math/rand/v2"
	"net/http"

	logging "localglobal-go/internal/logging"
	"localglobal-go/internal/metrics"
	"localglobal-go/internal/models"
	"localglobal-go/internal/repository"
	"localglobal-go/internal/utils"
	"localglobal-go/views"

	"github.com/a-h/templ"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunSessionKey is the cookie session key holding the active run ID.
const RunSessionKey = "runID"

// RunContextKey is the gin context key of the loaded *models.TaskRun.
const RunContextKey = "run"

// ExportFileName is the download name of the processed CSV.
const ExportFileName = "local_global_cleaned_data.csv"

type TaskHandler struct {
	log      *zap.Logger
	Protocol *models.Protocol
	Stimuli  []models.StimulusRecord
	// NewRand returns the randomness source for a new run.
	NewRand func() metrics.RandSource
}

func NewTaskHandler(log *zap.Logger, protocol *models.Protocol, stimuli []models.StimulusRecord) *TaskHandler {
	return &TaskHandler{
		log:      log,
		Protocol: protocol,
		Stimuli:  stimuli,
		NewRand: func() metrics.RandSource {
			seed1, seed2, err := utils.SeedPair()
			if err != nil {
				log.Warn("Falling back to runtime seed", zap.Error(err))
				seed1, seed2 = rand.Uint64(), rand.Uint64()
			}
			return rand.New(rand.NewPCG(seed1, seed2))
		},
	}
}

type startResponse struct {
	RunID        string        `json:"runId"`
	TotalTrials  int           `json:"totalTrials"`
	WarmupTrials int           `json:"warmupTrials"`
	Timing       models.Timing `json:"timing"`
	Choices      []string      `json:"choices"`
}

type trialResponse struct {
	TrialIndex int `json:"trialIndex"`
	models.TrialSpec
}

type submitRequest struct {
	TrialIndex *int     `json:"trialIndex" binding:"required"`
	Response   *int     `json:"response"`
	RT         *float64 `json:"rt"`
}

type submitResponse struct {
	IsCorrect int    `json:"isCorrect"`
	Feedback  string `json:"feedback"`
	Done      bool   `json:"done"`
}

type summaryResponse struct {
	RunID    string                  `json:"runId"`
	Schedule []models.TransitionType `json:"schedule"`
	Trials   []models.LabeledRecord  `json:"trials"`
	Summary  models.SessionSummary   `json:"summary"`
}

// Home renders the instruction pages.
func (h *TaskHandler) Home(c *gin.Context) {
	csrfToken, cspNonce := pageTokens(c)
	component := views.Instructions(h.Protocol, cspNonce)
	views.Layout(h.Protocol.Name, csrfToken, cspNonce).Render(
		templ.WithChildren(c.Request.Context(), component),
		c.Writer,
	)
}

// Start generates a new trial sequence and makes it the session's active run.
func (h *TaskHandler) Start(c *gin.Context) {
	generator := metrics.NewGenerator(h.NewRand(), h.log)
	trials, schedule := generator.GenerateWithSchedule(h.Stimuli, h.Protocol.TotalTrials, h.Protocol.WarmupTrials)
	if len(trials) == 0 {
		h.log.Error("Generated an empty trial sequence", zap.Int("stimuli", len(h.Stimuli)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No stimuli available"})
		return
	}

	run, err := repository.CreateRun(c.Request.Context(), trials, schedule, h.Protocol.WarmupTrials)
	if err != nil {
		h.log.Error("Failed to create task run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start task"})
		return
	}

	c.Request = c.Request.WithContext(logging.WithRunID(c.Request.Context(), run.ID))
	session := sessions.Default(c)
	session.Set(RunSessionKey, run.ID)
	if err := session.Save(); err != nil {
		h.log.Error("Failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start task"})
		return
	}

	h.log.Info("Task run started", zap.String("runID", run.ID), zap.Int("trials", len(trials)))
	c.JSON(http.StatusCreated, startResponse{
		RunID:        run.ID,
		TotalTrials:  run.TotalTrials(),
		WarmupTrials: run.WarmupTrials,
		Timing:       h.Protocol.Timing,
		Choices:      h.Protocol.Choices,
	})
}

// NextTrial returns the next trial to present, or 204 once the run is done.
func (h *TaskHandler) NextTrial(c *gin.Context) {
	run, ok := h.activeRun(c)
	if !ok {
		return
	}

	trial, ok := run.CurrentTrial()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, trialResponse{TrialIndex: run.NextTrial, TrialSpec: trial})
}

// SubmitResponse classifies and stores the response to the current trial.
func (h *TaskHandler) SubmitResponse(c *gin.Context) {
	run, ok := h.activeRun(c)
	if !ok {
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind response", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}
	if req.Response != nil && *req.Response != 0 && *req.Response != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "response must be 0, 1 or null"})
		return
	}
	if req.RT != nil && (*req.RT < 0 || *req.RT > float64(h.Protocol.Timing.StimulusMs)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rt is outside the response window"})
		return
	}

	index := *req.TrialIndex
	if index < 0 || index >= run.TotalTrials() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trialIndex out of range"})
		return
	}

	record := metrics.Classify(req.Response, req.RT, run.Trials[index])
	feedback := metrics.Feedback(record)

	updated, err := repository.AppendResponse(c.Request.Context(), run.ID, index, record, feedback)
	switch {
	case errors.Is(err, repository.ErrOutOfOrder):
		c.JSON(http.StatusConflict, gin.H{"error": "Response does not match the current trial", "expected": run.NextTrial})
		return
	case errors.Is(err, repository.ErrRunComplete):
		c.JSON(http.StatusConflict, gin.H{"error": "Task is already complete"})
		return
	case err != nil:
		h.log.Error("Failed to save response", zap.Error(err), zap.String("runID", run.ID), zap.Int("trialIndex", index))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save response"})
		return
	}

	c.JSON(http.StatusOK, submitResponse{
		IsCorrect: record.IsCorrect,
		Feedback:  feedback,
		Done:      updated.IsComplete,
	})
}

// Summary returns the labeled responses, the transition schedule the run was
// generated from and the switch-cost summary of a completed run.
func (h *TaskHandler) Summary(c *gin.Context) {
	run, ok := h.completedRun(c)
	if !ok {
		return
	}
	labeled, summary, ok := h.analyze(c, run)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, summaryResponse{
		RunID:    run.ID,
		Schedule: run.TransitionSchedule(),
		Trials:   labeled,
		Summary:  summary,
	})
}

// Export downloads the processed run as CSV.
func (h *TaskHandler) Export(c *gin.Context) {
	run, ok := h.completedRun(c)
	if !ok {
		return
	}
	labeled, summary, ok := h.analyze(c, run)
	if !ok {
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := metrics.WriteCSV(c.Writer, labeled, summary); err != nil {
		h.log.Error("Failed to write CSV export", zap.Error(err), zap.String("runID", run.ID))
	}
}

// activeRun returns the session's run, answering 404 when there is none. A
// run already placed in the context by the loader middleware is used as is.
func (h *TaskHandler) activeRun(c *gin.Context) (*models.TaskRun, bool) {
	if run, ok := c.Get(RunContextKey); ok {
		if run, ok := run.(*models.TaskRun); ok {
			return run, true
		}
	}

	runID, ok := sessions.Default(c).Get(RunSessionKey).(string)
	if !ok || runID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active task run"})
		return nil, false
	}

	c.Request = c.Request.WithContext(logging.WithRunID(c.Request.Context(), runID))
	run, err := repository.GetRun(c.Request.Context(), runID)
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active task run"})
		return nil, false
	}
	if err != nil {
		h.log.Error("Failed to load task run", zap.Error(err), zap.String("runID", runID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load task run"})
		return nil, false
	}
	return run, true
}

func (h *TaskHandler) completedRun(c *gin.Context) (*models.TaskRun, bool) {
	run, ok := h.activeRun(c)
	if !ok {
		return nil, false
	}
	if !run.IsComplete {
		c.JSON(http.StatusConflict, gin.H{"error": "Task is not complete", "remaining": run.TotalTrials() - run.NextTrial})
		return nil, false
	}
	return run, true
}

// analyze aggregates the run's responses and stores the result.
func (h *TaskHandler) analyze(c *gin.Context, run *models.TaskRun) ([]models.LabeledRecord, models.SessionSummary, bool) {
	ctx := c.Request.Context()
	records, err := repository.GetResponseRecords(ctx, run.ID)
	if err != nil {
		h.log.Error("Failed to load responses", zap.Error(err), zap.String("runID", run.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load responses"})
		return nil, models.SessionSummary{}, false
	}

	labeled, summary := metrics.Aggregate(records)
	if _, err := repository.SaveSwitchCostResultTx(ctx, run.ID, labeled, summary); err != nil {
		h.log.Error("Failed to save switch cost result", zap.Error(err), zap.String("runID", run.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save results"})
		return nil, models.SessionSummary{}, false
	}

	h.log.Debug("Run aggregated",
		zap.String("runID", run.ID),
		zap.Int("switchCost", summary.SwitchCost),
		zap.Int("repeatCount", summary.RepeatCount),
		zap.Int("switchCount", summary.SwitchCount),
	)
	return labeled, summary, true
}

func pageTokens(c *gin.Context) (csrfToken, cspNonce string) {
	return c.GetString("csrf_token"), c.GetString("csp_nonce")
}
