package views

import (
	"context"
	"strings"
	"testing"

	"localglobal-go/internal/models"

	"github.com/a-h/templ"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return b.String()
}

func TestLayout_WrapsChildren(t *testing.T) {
	inner := templ.Raw("<p>child</p>")
	ctx := templ.WithChildren(context.Background(), inner)
	out := render(t, ctx, Layout("Local-Global <Task>", "tok\"en", "nonce123"))

	for _, want := range []string{
		`<meta name="csrf-token" content="tok&#34;en">`,
		"<title>Local-Global &lt;Task&gt;</title>",
		`nonce="nonce123"`,
		"<p>child</p>",
		"</html>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("layout missing %q\n%s", want, out)
		}
	}
}

func TestInstructions(t *testing.T) {
	p := models.DefaultProtocol()
	p.Instructions = []models.InstructionPage{
		{Title: "Local-Global Task", Body: "BLUE: focus on the LARGE letter.", Button: "Start Task"},
	}
	p.Preload = []string{"stimulus/blank.png"}

	out := render(t, context.Background(), Instructions(p, "n"))
	for _, want := range []string{
		`data-total-trials="40"`,
		"BLUE: focus on the LARGE letter.",
		"<button class=\"instruction-button\">Start Task</button>",
		"<li>S</li>",
		`href="/assets/stimulus/blank.png"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestResults(t *testing.T) {
	summary := models.SessionSummary{
		TotalCorrect: 37, TotalTrials: 40,
		MeanRepeatRT: 500, MeanSwitchRT: 800, SwitchCost: 300,
		RepeatCount: 17, SwitchCount: 16,
	}
	out := render(t, context.Background(), Results(summary, `{"series":[]}`, `{}`, "n"))
	for _, want := range []string{
		"<td>37 / 40</td>",
		"<td>500 ms</td>",
		"<td>800 ms</td>",
		"<td>300 ms</td>",
		"Analyzed 17 Repeat &amp; 16 Switch trials",
		`data-options="{&#34;series&#34;:[]}"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("results missing %q", want)
		}
	}
}
