package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

func resetFlags() {
	decideThreshold = 0.80
	decideSubtypes = false
	decideDisable = nil
	decideScores = "-"
	decideFormat = "text"
	scoreFormat = "text"
	for _, cmd := range []*pflag.FlagSet{decideCmd.Flags(), scoreCmd.Flags()} {
		cmd.VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func scoreJSON(overrides map[string]float64) string {
	m := map[string]float64{}
	for _, attr := range scores.AllAttributes {
		m[string(attr)] = 0.01
	}
	for k, v := range overrides {
		m[k] = v
	}
	data, _ := json.Marshal(m)
	return string(data)
}

func TestDecide_Text(t *testing.T) {
	out, err := run(t, scoreJSON(map[string]float64{"insult": 1.0}), "decide", "--threshold", "0.5", "--subtypes")
	if err != nil {
		t.Fatalf("decide failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"decision:  hideCommentDueToScores",
		"attribute: insult",
		"reason:    Blaring",
		"question:  Is this an insult?",
		"color:     rgb(",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDecide_DisableAttribute(t *testing.T) {
	out, err := run(t, scoreJSON(map[string]float64{"insult": 1.0}),
		"decide", "--threshold", "0.5", "--subtypes", "--disable", "insult", "--format", "json")
	if err != nil {
		t.Fatalf("decide failed: %v\n%s", err, out)
	}

	var body struct {
		Decision json.RawMessage `json:"decision"`
		Hidden   bool            `json:"hidden"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("bad json output: %v\n%s", err, out)
	}
	if body.Hidden || string(body.Decision) != `{"kind":"showComment"}` {
		t.Errorf("expected show with insult disabled, got %s", out)
	}
}

func TestDecide_ScoresFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "decide", "--threshold", "0.1", "--scores", path)
	if err != nil {
		t.Fatalf("decide failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hideCommentDueToUnsupportedLanguage") ||
		!strings.Contains(out, scores.UnsupportedLanguageDescription) {
		t.Errorf("expected unsupported language output, got:\n%s", out)
	}
}

func TestDecide_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"threshold out of range", scoreJSON(nil), []string{"decide", "--threshold", "2"}},
		{"non-setting disable", scoreJSON(nil), []string{"decide", "--disable", "toxicity"}},
		{"unknown attribute", `{"spam":0.3}`, []string{"decide"}},
		{"bad json", `{`, []string{"decide"}},
		{"missing file", "", []string{"decide", "--scores", "/nonexistent/scores.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.stdin, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBands(t *testing.T) {
	out, err := run(t, "", "bands")
	if err != nil {
		t.Fatalf("bands failed: %v", err)
	}
	for _, b := range scores.Bands {
		if !strings.Contains(out, string(b.Band)) {
			t.Errorf("missing band %s:\n%s", b.Band, out)
		}
	}
	if !strings.Contains(out, "rgb(81, 45, 168)") {
		t.Errorf("expected quiet band colour:\n%s", out)
	}
}

func TestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/comments:analyze") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"attributeScores":{"TOXICITY":{"summaryScore":{"value":0.42}},"INSULT":{"summaryScore":{"value":0.17}}}}`))
	}))
	defer server.Close()
	t.Setenv("PERSPECTIVE_URL", server.URL)
	t.Setenv("PERSPECTIVE_API_KEY", "test-key")

	out, err := run(t, "", "score", "hello", "there")
	if err != nil {
		t.Fatalf("score failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "toxicity") || !strings.Contains(out, "0.4200") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Index(out, "insult") > strings.Index(out, "toxicity") {
		t.Errorf("expected canonical attribute order:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("bad json: %v\n%s", err, out)
	}
	if info["name"] != "tunectl" || info["version"] != version {
		t.Errorf("unexpected version info %v", info)
	}
}
