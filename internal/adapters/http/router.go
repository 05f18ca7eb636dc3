package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/uscbytes/course-qa/internal/core/domain"
	"github.com/uscbytes/course-qa/internal/core/ports"
)

// HealthReporter exposes index state for the health endpoint without
// forcing the lazy answering engine to initialize.
type HealthReporter interface {
	IndexLoaded() bool
	IndexPath() string
}

type Config struct {
	DefaultTopK        int
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	MaxInFlight        int
	StaticDir          string
}

func (c *Config) normalize() {
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 10
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 90 * time.Second
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = 10
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 32
	}
}

type Router struct {
	cfg     Config
	service ports.QuestionService
	health  HealthReporter
}

func NewRouter(cfg Config, service ports.QuestionService, health HealthReporter) *Router {
	cfg.normalize()
	return &Router{
		cfg:     cfg,
		service: service,
		health:  health,
	}
}

func (rt *Router) Handler() http.Handler {
	limiter := newClientLimiter(rt.cfg.RateLimitPerMinute)

	var query http.Handler = http.HandlerFunc(rt.answerQuestion)
	query = backpressureMiddleware(query, rt.cfg.MaxInFlight, 50*time.Millisecond)
	query = rateLimitMiddleware(query, limiter, rt.cfg.RateLimitPerMinute)
	query = http.TimeoutHandler(query, rt.cfg.RequestTimeout, timeoutBody(rt.cfg.RequestTimeout))

	mux := http.NewServeMux()
	mux.Handle("/query", query)
	mux.HandleFunc("/health", rt.healthz)
	mux.HandleFunc("/prompts", rt.listPrompts)
	if rt.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(rt.cfg.StaticDir)))
	}

	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"index_loaded": rt.health.IndexLoaded(),
		"index_path":   rt.health.IndexPath(),
	})
}

func (rt *Router) listPrompts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	prompts, err := rt.service.AvailablePrompts(r.Context())
	if err != nil {
		writeAnswerError(w, http.StatusInternalServerError, "Prompt list is unavailable right now. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"prompts": prompts})
}

func (rt *Router) answerQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question   string `json:"question"`
		PromptName string `json:"prompt_name"`
		TopK       int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAnswerError(w, http.StatusBadRequest, "The request body must be valid JSON with a question field.")
		return
	}
	if req.TopK < 0 {
		writeAnswerError(w, http.StatusBadRequest, "The request parameters are invalid. top_k must be a positive number.")
		return
	}
	if req.TopK == 0 {
		req.TopK = rt.cfg.DefaultTopK
	}

	answer, err := rt.service.Answer(r.Context(), req.Question, req.PromptName, req.TopK)
	if err != nil {
		status, message := mapServiceError(err)
		writeAnswerError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeAnswerError keeps error responses in the same shape as a
// successful answer so the frontend renders them without special
// casing.
func writeAnswerError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, domain.Answer{
		Text:       message,
		Sources:    []string{},
		PromptName: "error",
	})
}

func timeoutBody(timeout time.Duration) string {
	payload, _ := json.Marshal(domain.Answer{
		Text:       fmt.Sprintf("The question took longer than %s to answer. Please try again.", timeout),
		Sources:    []string{},
		PromptName: "error",
	})
	return string(payload)
}
