package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tierloop/internal/bundle"
	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/itembank"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/remediation"
	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/session"
)

var testLessons = []curriculum.Lesson{
	{ID: "place-value", Name: "Place value"},
	{ID: "add-sub", Name: "Addition and subtraction"},
	{ID: "multiplication", Name: "Multiplication"},
	{ID: "fractions", Name: "Fractions"},
	{ID: "measurement", Name: "Measurement"},
}

type harness struct {
	t   *testing.T
	svc *session.Service
	ts  *httptest.Server
}

func newHarness(t *testing.T, bank *itembank.Bank, opts ...bundle.Option) *harness {
	t.Helper()
	if bank == nil {
		var qs []problemgen.Question
		for _, l := range testLessons {
			for _, tier := range curriculum.AllTiers() {
				qs = append(qs, problemgen.SyntheticQuestions(l.ID, tier, "bank", 6)...)
			}
		}
		bank = itembank.New(testLessons, qs)
	}
	catalog := curriculum.NewCatalog(testLessons)
	var n atomic.Int32
	svc := session.NewService(
		bundle.New(bank, testLessons, append([]bundle.Option{bundle.WithRand(func(int) int { return 0 })}, opts...)...),
		remediation.NewManager(bank, catalog),
		review.NewComposer(catalog),
		session.WithIDFunc(func() string { return fmt.Sprintf("s%d", n.Add(1)) }),
	)
	ts := httptest.NewServer(NewServer(svc, nil, 5*time.Second).Routes())
	t.Cleanup(ts.Close)
	return &harness{t: t, svc: svc, ts: ts}
}

// do sends a request and decodes the JSON response into out when non-nil.
func (h *harness) do(method, path string, body any, out any) int {
	h.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, rd)
	require.NoError(h.t, err)
	resp, err := h.ts.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// answersFor answers the first correct items right using the engine's copy
// of the questions, since the API never reveals correct indexes.
func (h *harness) answersFor(id string, items []questionView, correct int) answersRequest {
	h.t.Helper()
	sess, err := h.svc.Snapshot(context.Background(), id)
	require.NoError(h.t, err)
	byID := sess.Questions()

	var req answersRequest
	for i, v := range items {
		q, ok := byID[v.ID]
		require.True(h.t, ok, "unknown question %s", v.ID)
		choice := q.CorrectIndex
		if i >= correct {
			choice = (q.CorrectIndex + 1) % len(q.Choices)
		}
		req.Answers = append(req.Answers, answerItem{QuestionID: v.ID, Choice: choice, ElapsedMs: 1500})
	}
	return req
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestFullFlow(t *testing.T) {
	h := newHarness(t, nil)

	var created session.Session
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/sessions", createSessionRequest{Name: "Ada", Grade: "4"}, &created))
	id := created.ID
	assert.Equal(t, "s1", id)

	var out outcomeView
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/sessions/"+id+"/tiers/recognition/start", nil, &out))
	assert.Equal(t, "BUNDLE_RECOGNITION", out.State.String())
	require.Len(t, out.Bundle, len(testLessons))

	// Fail the bundle with two wrong answers.
	path := "/v1/sessions/" + id + "/bundle/answers"
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, path, h.answersFor(id, out.Bundle, 3), &out))
	assert.Equal(t, "REVIEW_FAIL_RECOGNITION", out.State.String())
	require.NotNil(t, out.Result)
	assert.Equal(t, 3, out.Result.Score)
	assert.True(t, out.NeedsReview)

	var rev review.Review
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/sessions/"+id+"/tiers/recognition/review", nil, &rev))
	assert.Equal(t, flow.ReviewBundleFail, rev.Kind)
	assert.False(t, rev.Passed)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/sessions/"+id+"/tiers/recognition/continue", nil, &out))
	assert.Equal(t, "SUPP_ROUND_RECOGNITION", out.State.String())
	require.NotNil(t, out.Round)
	assert.Equal(t, 1, out.Round.Number)

	for round := 1; round <= 2; round++ {
		require.NotNil(t, out.Round)
		require.Equal(t, round, out.Round.Number)
		base := fmt.Sprintf("/v1/sessions/%s/rounds/%d", id, round)

		require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/answers", h.answersFor(id, out.Round.Items, len(out.Round.Items)), &out))
		assert.Equal(t, "ROUND_REVIEW_RECOGNITION", out.State.String())
		require.NotNil(t, out.RoundResult)
		assert.Equal(t, out.RoundResult.Total, out.RoundResult.Correct)

		var rr review.Review
		require.Equal(t, http.StatusOK, h.do(http.MethodGet, base+"/review", nil, &rr))
		assert.Equal(t, flow.ReviewRound, rr.Kind)
		assert.Equal(t, round, rr.Round)

		require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/continue", nil, &out))
	}
	assert.Equal(t, "REVIEW_SUPP_RECOGNITION", out.State.String())

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/sessions/"+id+"/tiers/recognition/continue", nil, &out))
	assert.Equal(t, "BUNDLE_COMPREHENSION", out.State.String())

	for _, tier := range []string{"comprehension", "application"} {
		require.Equal(t, http.StatusOK, h.do(http.MethodPost, path, h.answersFor(id, out.Bundle, len(out.Bundle)), &out))
		require.True(t, out.Result.Passed)
		require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/sessions/"+id+"/tiers/"+tier+"/continue", nil, &out))
	}
	assert.True(t, out.Terminal)
	assert.Equal(t, "END", out.State.String())

	var rep session.Report
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/sessions/"+id+"/report", nil, &rep))
	require.Len(t, rep.Tiers, 3)
	assert.False(t, rep.Tiers[0].Passed)
	require.NotNil(t, rep.Tiers[0].RemediationPassed)
	assert.True(t, *rep.Tiers[0].RemediationPassed)
	assert.Equal(t, "Ada", rep.Identity.Name)

	var snap session.Session
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/sessions/"+id, nil, &snap))
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "END", snap.State.String())
}

func TestBundleHidesAnswerKey(t *testing.T) {
	h := newHarness(t, nil)
	var created session.Session
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/sessions", nil, &created))

	var raw map[string]any
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/sessions/"+created.ID+"/tiers/1/start", nil, &raw))
	items, ok := raw["bundle"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, items)
	for _, it := range items {
		q := it.(map[string]any)
		assert.NotContains(t, q, "correct_index")
		assert.NotContains(t, q, "explanation")
		assert.Contains(t, q, "prompt")
	}
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t, nil)
	var created session.Session
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/sessions", createSessionRequest{Name: "Bo"}, &created))
	id := created.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown session", http.MethodGet, "/v1/sessions/nope", nil, http.StatusNotFound, ErrCodeNotFound},
		{"unknown session start", http.MethodPost, "/v1/sessions/nope/tiers/recognition/start", nil, http.StatusNotFound, ErrCodeNotFound},
		{"bad tier", http.MethodPost, "/v1/sessions/" + id + "/tiers/expert/start", nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad round", http.MethodPost, "/v1/sessions/" + id + "/rounds/zero/continue", nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"submit before start", http.MethodPost, "/v1/sessions/" + id + "/bundle/answers", answersRequest{}, http.StatusConflict, ErrCodeInvalidTransition},
		{"skip to second tier", http.MethodPost, "/v1/sessions/" + id + "/tiers/comprehension/start", nil, http.StatusConflict, ErrCodeInvalidTransition},
		{"report before end", http.MethodGet, "/v1/sessions/" + id + "/report", nil, http.StatusConflict, ErrCodeInvalidTransition},
		{"malformed body", http.MethodPost, "/v1/sessions/" + id + "/bundle/answers", map[string]any{"answers": "x"}, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			status := h.do(tt.method, tt.path, tt.body, &body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestInvalidSubmission(t *testing.T) {
	h := newHarness(t, nil)
	var created session.Session
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/sessions", nil, &created))
	var out outcomeView
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/sessions/"+created.ID+"/tiers/recognition/start", nil, &out))

	partial := h.answersFor(created.ID, out.Bundle[:2], 2)
	var body errorBody
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/sessions/"+created.ID+"/bundle/answers", partial, &body))
	assert.Equal(t, ErrCodeInvalidSubmission, body.Error.Code)
}

func TestContentUnavailable(t *testing.T) {
	h := newHarness(t, itembank.New(testLessons, nil), bundle.WithPlaceholders(false))
	var created session.Session
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/sessions", nil, &created))

	var body errorBody
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodPost, "/v1/sessions/"+created.ID+"/tiers/recognition/start", nil, &body))
	assert.Equal(t, ErrCodeContentUnavailable, body.Error.Code)
}

func TestToAppError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, toAppError(errors.New("boom")).Status)
	assert.Equal(t, http.StatusNotFound, toAppError(fmt.Errorf("wrap: %w", session.ErrSessionNotFound)).Status)
	custom := badRequest("bad %s", "thing")
	assert.Same(t, custom, toAppError(custom))
}

func TestHealthAndRequestID(t *testing.T) {
	h := newHarness(t, nil)
	req, err := http.NewRequest(http.MethodGet, h.ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := h.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	s := NewServer(nil, nil, 0)
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrCodeInternal)
}
