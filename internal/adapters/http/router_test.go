package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

type serviceStub struct {
	answer     *domain.Answer
	err        error
	prompts    []string
	lastTopK   int
	lastPrompt string
}

func (s *serviceStub) Answer(_ context.Context, question, promptName string, topK int) (*domain.Answer, error) {
	s.lastTopK = topK
	s.lastPrompt = promptName
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func (s *serviceStub) AvailablePrompts(context.Context) ([]string, error) {
	return s.prompts, nil
}

type healthStub struct {
	loaded bool
	path   string
}

func (h healthStub) IndexLoaded() bool { return h.loaded }
func (h healthStub) IndexPath() string { return h.path }

func newTestRouter(service *serviceStub, cfg Config) http.Handler {
	return NewRouter(cfg, service, healthStub{loaded: true, path: "/tmp/index"}).Handler()
}

func postQuery(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeAnswer(t *testing.T, res *httptest.ResponseRecorder) domain.Answer {
	t.Helper()
	var answer domain.Answer
	if err := json.Unmarshal(res.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return answer
}

func TestAnswerQuestionSuccess(t *testing.T) {
	service := &serviceStub{
		answer: &domain.Answer{
			Text:       "Office hours are Tuesday at 14:00.",
			Sources:    []string{"https://courses.example.edu/cs104/staff"},
			PromptName: "ta_friendly",
		},
	}
	handler := newTestRouter(service, Config{})

	res := postQuery(t, handler, `{"question":"when are office hours?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	answer := decodeAnswer(t, res)
	if answer.Text != service.answer.Text {
		t.Fatalf("answer = %q", answer.Text)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("sources = %v", answer.Sources)
	}
	if service.lastTopK != 10 {
		t.Fatalf("default top_k not applied, got %d", service.lastTopK)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestAnswerQuestionPassesExplicitTopKAndPrompt(t *testing.T) {
	service := &serviceStub{answer: &domain.Answer{Text: "ok", Sources: []string{}, PromptName: "ta_strict"}}
	handler := newTestRouter(service, Config{})

	res := postQuery(t, handler, `{"question":"what is the late policy?","prompt_name":"ta_strict","top_k":3}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if service.lastTopK != 3 || service.lastPrompt != "ta_strict" {
		t.Fatalf("got top_k=%d prompt=%q", service.lastTopK, service.lastPrompt)
	}
}

func TestAnswerQuestionRejectsNegativeTopK(t *testing.T) {
	handler := newTestRouter(&serviceStub{}, Config{})
	res := postQuery(t, handler, `{"question":"when are office hours?","top_k":-1}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAnswerQuestionInvalidJSON(t *testing.T) {
	handler := newTestRouter(&serviceStub{}, Config{})
	res := postQuery(t, handler, `{"question":`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	answer := decodeAnswer(t, res)
	if answer.PromptName != "error" || answer.Sources == nil {
		t.Fatalf("error body should be answer shaped: %+v", answer)
	}
}

func TestAnswerQuestionMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid query", domain.WrapError(domain.ErrInvalidQuery, "usecase.answer", nil), http.StatusBadRequest},
		{"embedding down", domain.WrapError(domain.ErrEmbeddingUnavailable, "openai.embed", nil), http.StatusServiceUnavailable},
		{"index missing", domain.WrapError(domain.ErrIndexUnavailable, "diskindex.open", nil), http.StatusServiceUnavailable},
		{"synthesis failed", domain.WrapError(domain.ErrSynthesisFailed, "openai.chat", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&serviceStub{err: tc.err}, Config{})
			res := postQuery(t, handler, `{"question":"when is the final exam?"}`)
			if res.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, res.Code)
			}
			if strings.Contains(res.Body.String(), "openai") || strings.Contains(res.Body.String(), "usecase") {
				t.Fatalf("internal detail leaked: %s", res.Body.String())
			}
			answer := decodeAnswer(t, res)
			if answer.PromptName != "error" {
				t.Fatalf("error body should be answer shaped: %+v", answer)
			}
		})
	}
}

func TestQueryMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&serviceStub{}, Config{})
	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestHealthReportsIndexState(t *testing.T) {
	handler := NewRouter(Config{}, &serviceStub{}, healthStub{loaded: false, path: "./data/processed/index"}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status = %v", body["status"])
	}
	if body["index_loaded"] != false {
		t.Fatalf("index_loaded = %v", body["index_loaded"])
	}
	if body["index_path"] != "./data/processed/index" {
		t.Fatalf("index_path = %v", body["index_path"])
	}
}

func TestListPrompts(t *testing.T) {
	handler := newTestRouter(&serviceStub{prompts: []string{"professor_brief", "ta_friendly", "ta_strict"}}, Config{})
	req := httptest.NewRequest(http.MethodGet, "/prompts", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string][]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body["prompts"]) != 3 {
		t.Fatalf("prompts = %v", body["prompts"])
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	service := &serviceStub{answer: &domain.Answer{Text: "ok", Sources: []string{}, PromptName: "ta_friendly"}}
	handler := newTestRouter(service, Config{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		res := postQuery(t, handler, `{"question":"when are office hours?"}`)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, res.Code)
		}
	}

	res := postQuery(t, handler, `{"question":"when are office hours?"}`)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	answer := decodeAnswer(t, res)
	if !strings.Contains(answer.Text, "too many requests") {
		t.Fatalf("unexpected message: %q", answer.Text)
	}
	if answer.PromptName != "error" {
		t.Fatalf("429 body should be answer shaped: %+v", answer)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodPost, "/query", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodPost, "/query", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated gate, got %d", res2.Code)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first request")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("clientIP = %q", got)
	}
}
