// internal/handlers/results.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"localglobal-go/internal/models"
	"localglobal-go/internal/repository"
	"localglobal-go/views"

	"github.com/a-h/templ"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missingPoint is how echarts marks a gap in a line series.
const missingPoint = "-"

type ResultsHandler struct {
	log  *zap.Logger
	task *TaskHandler
}

func NewResultsHandler(log *zap.Logger, task *TaskHandler) *ResultsHandler {
	return &ResultsHandler{log: log, task: task}
}

func (h *ResultsHandler) ShowResults(c *gin.Context) {
	if _, ok := sessions.Default(c).Get(RunSessionKey).(string); !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}

	run, ok := h.task.completedRun(c)
	if !ok {
		return
	}
	summary, ok := h.storedSummary(c, run)
	if !ok {
		return
	}

	series, err := repository.GetTrialRTSeries(c.Request.Context(), run.ID)
	if err != nil {
		h.log.Error("Failed to get reaction time series", zap.Error(err), zap.String("runID", run.ID))
		c.String(http.StatusInternalServerError, "Failed to load results")
		return
	}

	rtOptionsJSON, _ := json.Marshal(generateRTChart(series, run.TotalTrials()).JSON())
	meansOptionsJSON, _ := json.Marshal(generateMeansChart(summary).JSON())

	csrfToken, cspNonce := pageTokens(c)
	component := views.Results(summary, string(rtOptionsJSON), string(meansOptionsJSON), cspNonce)

	if c.GetHeader("HX-Request") == "true" {
		component.Render(c.Request.Context(), c.Writer)
	} else {
		views.Layout("Results", csrfToken, cspNonce).Render(
			templ.WithChildren(c.Request.Context(), component),
			c.Writer,
		)
	}
}

// storedSummary returns the run's saved result, aggregating the run first
// when it has not been processed yet.
func (h *ResultsHandler) storedSummary(c *gin.Context, run *models.TaskRun) (models.SessionSummary, bool) {
	stored, err := repository.GetSwitchCostResult(c.Request.Context(), run.ID)
	switch {
	case err == nil:
		return stored.SessionSummary, true
	case !errors.Is(err, repository.ErrResultNotFound):
		h.log.Error("Failed to load switch cost result", zap.Error(err), zap.String("runID", run.ID))
		c.String(http.StatusInternalServerError, "Failed to load results")
		return models.SessionSummary{}, false
	}

	_, summary, ok := h.task.analyze(c, run)
	return summary, ok
}

// generateRTChart plots reaction time per trial with one series per analysis
// outcome. Timed-out trials leave a gap.
func generateRTChart(data []repository.TrialRTPoint, totalTrials int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Reaction Time by Trial",
			Subtitle: "Consecutive correct responses are included",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "category",
			Name: "Trial",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Name:  "RT (ms)",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	trials := make([]string, totalTrials)
	for i := range trials {
		trials[i] = fmt.Sprint(i + 1)
	}

	repeat := emptyLine(totalTrials)
	switched := emptyLine(totalTrials)
	excluded := emptyLine(totalTrials)
	for _, point := range data {
		if point.TrialIndex < 0 || point.TrialIndex >= totalTrials {
			continue
		}
		item := opts.LineData{Value: point.ReactionTimeMs}
		switch {
		case point.Included && point.Label == string(models.LabelRepeat):
			repeat[point.TrialIndex] = item
		case point.Included && point.Label == string(models.LabelSwitch):
			switched[point.TrialIndex] = item
		default:
			excluded[point.TrialIndex] = item
		}
	}

	line.SetXAxis(trials).
		AddSeries("Repeat", repeat).
		AddSeries("Switch", switched).
		AddSeries("Excluded", excluded).
		SetSeriesOptions(
			charts.WithLineStyleOpts(opts.LineStyle{Width: 0}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		)
	return line
}

func emptyLine(n int) []opts.LineData {
	items := make([]opts.LineData, n)
	for i := range items {
		items[i] = opts.LineData{Value: missingPoint}
	}
	return items
}

// generateMeansChart compares the repeat and switch means.
func generateMeansChart(summary models.SessionSummary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Mean Reaction Time",
			Subtitle: fmt.Sprintf("Switch cost: %d ms", summary.SwitchCost),
		}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "RT (ms)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	bar.SetXAxis([]string{string(models.LabelRepeat), string(models.LabelSwitch)}).
		AddSeries("Mean RT", []opts.BarData{
			{Value: summary.MeanRepeatRT},
			{Value: summary.MeanSwitchRT},
		})
	return bar
}
