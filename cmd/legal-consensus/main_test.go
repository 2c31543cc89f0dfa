package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// fakeOpenAI answers every chat completion with text, streamed or not.
func fakeOpenAI(t *testing.T, text string) *httptest.Server {
	t.Helper()
	content, _ := json.Marshal(text)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"},{"id":"gpt-4o","object":"model"}]}`)
			return
		}

		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%s}}]}\n\n", content)
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, sources ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("timeout: 5s\naudit:\n  dir: " + filepath.Join(t.TempDir(), "audit") + "\nsources:\n")
	for _, s := range sources {
		b.WriteString(s)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func openAISource(name, url string) string {
	return fmt.Sprintf("  - name: %s\n    provider: openai\n    model: gpt-4o\n    api_key_env: TEST_OPENAI_KEY\n    base_url: %s\n", name, url)
}

func TestDemo_JSON(t *testing.T) {
	stdout, _, err := execute(t, "", "demo", "--json")
	require.NoError(t, err)

	var res output.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))

	assert.Equal(t, demoQuestion, res.Question)
	assert.Equal(t, consensus.LevelHigh, res.Consensus.Level)
	assert.Equal(t, consensus.OutcomePartialAgreement, res.Outcome)
	assert.Equal(t, []string{
		"Harlow v. Fitzgerald, 457 U.S. 800",
		"Pearson v. Callahan, 555 U.S. 223",
	}, res.Consensus.Shared.Items())
	assert.Equal(t, []string{"Saucier v. Katz, 533 U.S. 194"}, res.Consensus.UniqueBySource["Claude Sonnet 4.5"].Items())
	assert.Equal(t, []string{"Anderson v. Creighton, 483 U.S. 635"}, res.Consensus.UniqueBySource["GPT-4o"].Items())
	assert.True(t, res.Consensus.UniqueBySource["Gemini 2.0 Flash"].Empty())
	assert.False(t, res.Audited)
}

func TestDemo_Report(t *testing.T) {
	stdout, _, err := execute(t, "", "demo")
	require.NoError(t, err)

	assert.Contains(t, stdout, "LEGAL RESEARCH VERIFICATION")
	assert.Contains(t, stdout, "Consensus Level: HIGH")
	assert.Contains(t, stdout, "Claude Sonnet 4.5: Saucier v. Katz, 533 U.S. 194")
	assert.NotContains(t, stdout, "AUDIT TRAIL SAVED")
}

func TestDemo_Save(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("audit:\n  dir: "+dir+"\n"), 0644))

	stdout, _, err := execute(t, "", "demo", "--save", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "AUDIT TRAIL SAVED")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestVerify_EndToEnd(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "k")
	t.Setenv("DATABASE_URL", "")
	a := fakeOpenAI(t, "See Harlow v. Fitzgerald, 457 U.S. 800.")
	b := fakeOpenAI(t, "Harlow v. Fitzgerald, 457 U.S. 800 and Pearson v. Callahan.")
	cfgPath := writeConfig(t, openAISource("Alpha", a.URL), openAISource("Beta", b.URL))

	stdout, _, err := execute(t, "", "--config", cfgPath, "--json", "--no-save", "Is", "qualified", "immunity", "available?")
	require.NoError(t, err)

	var res output.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "Is qualified immunity available?", res.Question)
	assert.Equal(t, []string{"Harlow v. Fitzgerald, 457 U.S. 800"}, res.Consensus.Shared.Items())
	assert.Equal(t, "Alpha", res.Results[0].SourceID)
	assert.Equal(t, "openai", res.Results[0].Provider)
}

func TestVerify_StdinAndSourcesFlag(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "k")
	t.Setenv("DATABASE_URL", "")
	a := fakeOpenAI(t, "Pearson v. Callahan")
	b := fakeOpenAI(t, "Saucier v. Katz")
	cfgPath := writeConfig(t, openAISource("Alpha", a.URL), openAISource("Beta", b.URL))

	stdout, _, err := execute(t, "What test applies?\n", "verify", "--config", cfgPath, "--json", "--no-save", "--sources", "Beta")
	require.NoError(t, err)

	var res output.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "What test applies?", res.Question)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Beta", res.Results[0].SourceID)
}

func TestVerify_StrictExitCode(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "k")
	t.Setenv("DATABASE_URL", "")
	a := fakeOpenAI(t, "Pearson v. Callahan")
	b := fakeOpenAI(t, "Saucier v. Katz")
	cfgPath := writeConfig(t, openAISource("Alpha", a.URL), openAISource("Beta", b.URL))

	stdout, _, err := execute(t, "", "--config", cfgPath, "--no-save", "--strict", "q")

	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitCodeNotCorroborated, exitErr.code)
	assert.Contains(t, stdout, "No shared citations found across models")
}

func TestVerify_AllSourcesFailStillReports(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	t.Setenv("DATABASE_URL", "")
	cfgPath := writeConfig(t, openAISource("Alpha", "http://127.0.0.1:1/v1"))

	stdout, _, err := execute(t, "", "--config", cfgPath, "--json", "--no-save", "q")
	require.NoError(t, err)

	var res output.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, consensus.LevelNone, res.Consensus.Level)
	assert.Equal(t, consensus.OutcomeTotalFailure, res.Outcome)
	assert.Equal(t, "Error: TEST_OPENAI_KEY is not set", res.Results[0].ResponseText)
}

func TestVerify_OutputFileAndAudit(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "k")
	t.Setenv("DATABASE_URL", "")
	a := fakeOpenAI(t, "Harlow v. Fitzgerald")
	cfgPath := writeConfig(t, openAISource("Alpha", a.URL))
	outPath := filepath.Join(t.TempDir(), "out.json")

	stdout, _, err := execute(t, "", "--config", cfgPath, "--output", outPath, "q")
	require.NoError(t, err)

	assert.Contains(t, stdout, "This verification session has been logged for compliance review.")
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var res output.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.True(t, res.Audited)
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no question", []string{"verify"}, "no question provided"},
		{"missing question file", []string{"--file", "/nonexistent/q.txt"}, "reading question file"},
		{"unknown source", []string{"--sources", "Nope", "q"}, `unknown source "Nope"`},
		{"bad config", []string{"--config", "/nonexistent.yaml", "q"}, "loading config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestModels(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "k")
	a := fakeOpenAI(t, "")
	cfgPath := writeConfig(t, openAISource("Alpha", a.URL))

	stdout, _, err := execute(t, "", "models", "--config", cfgPath, "--remote")
	require.NoError(t, err)

	var recs []ModelRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "Alpha", recs[0].Source)
	assert.True(t, recs[0].APIKeyPresent)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, recs[0].Available)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)

	assert.Contains(t, stdout, "legal-consensus dev")
	assert.Contains(t, stdout, "commit: none")
}

func TestGetQuestion(t *testing.T) {
	q, err := getQuestion([]string{"a", "b"}, "", strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "a b", q)

	path := filepath.Join(t.TempDir(), "q.txt")
	require.NoError(t, os.WriteFile(path, []byte("  from file \n"), 0644))
	q, err = getQuestion(nil, path, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "from file", q)

	q, err = getQuestion(nil, "", strings.NewReader("line one\nline two\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", q)

	_, err = getQuestion(nil, "", strings.NewReader("   "))
	assert.Error(t, err)
}
