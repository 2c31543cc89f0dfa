package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/metrics"
	"github.com/johnayoung/legal-consensus/internal/output"
	"github.com/johnayoung/legal-consensus/internal/verify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(ctx context.Context, q string) (*output.Result, error)

func (f verifierFunc) Verify(ctx context.Context, q string) (*output.Result, error) {
	return f(ctx, q)
}

func agreeing(ctx context.Context, q string) (*output.Result, error) {
	if strings.TrimSpace(q) == "" {
		return nil, verify.ErrEmptyQuestion
	}
	results := []consensus.SourceResult{
		consensus.Success("A", "Harlow v. Fitzgerald"),
		consensus.Success("B", "Harlow v. Fitzgerald"),
	}
	return output.New(q, "p", results, consensus.Analyze(results)), nil
}

func TestHandleVerify(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		verifier   verifierFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			body:       `{"question":"Is qualified immunity available?"}`,
			verifier:   agreeing,
			wantStatus: http.StatusOK,
			wantBody:   `"consensus_level":"high"`,
		},
		{
			name:       "empty question",
			body:       `{"question":"  "}`,
			verifier:   agreeing,
			wantStatus: http.StatusBadRequest,
			wantBody:   "question is required",
		},
		{
			name:       "malformed body",
			body:       `{"question":`,
			verifier:   agreeing,
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid request body",
		},
		{
			name: "verifier error",
			body: `{"question":"q"}`,
			verifier: func(context.Context, string) (*output.Result, error) {
				return nil, errors.New("template broken")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "template broken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Config{Verifier: tt.verifier})
			req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandleVerify_ResultShape(t *testing.T) {
	srv := New(Config{Verifier: verifierFunc(agreeing)})
	req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	var res output.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, consensus.OutcomeFullAgreement, res.Outcome)
	assert.Equal(t, []string{"Harlow v. Fitzgerald"}, res.Consensus.Shared.Items())
}

func TestMethodNotAllowed(t *testing.T) {
	srv := New(Config{Verifier: verifierFunc(agreeing)})
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/verify", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := New(Config{Verifier: verifierFunc(agreeing)})
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveVerification("high", 1)

	srv := New(Config{Verifier: verifierFunc(agreeing), Gatherer: reg})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `legal_consensus_verifications_total{level="high"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	srv := New(Config{Verifier: verifierFunc(agreeing)})
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
