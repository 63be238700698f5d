package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/policyscope/policyscope/internal/core/ports"
	"github.com/policyscope/policyscope/internal/observability/metrics"
)

// RouterConfig carries the API surface tunables.
type RouterConfig struct {
	Service string

	RateLimitRPS   float64
	RateLimitBurst int

	MaxInFlight      int
	BackpressureWait time.Duration
}

type Router struct {
	ingest      ports.PolicyIngestor
	reader      ports.PolicyReader
	comparator  ports.PolicyComparator
	answerer    ports.QuestionAnswerer
	comparisons ports.ComparisonRepository

	httpMetrics *metrics.HTTPServerMetrics
	cfg         RouterConfig
}

func NewRouter(
	ingest ports.PolicyIngestor,
	reader ports.PolicyReader,
	comparator ports.PolicyComparator,
	answerer ports.QuestionAnswerer,
	comparisons ports.ComparisonRepository,
	httpMetrics *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	return &Router{
		ingest:      ingest,
		reader:      reader,
		comparator:  comparator,
		answerer:    answerer,
		comparisons: comparisons,
		httpMetrics: httpMetrics,
		cfg:         cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/policies", rt.policies)
	mux.HandleFunc("/v1/policies/", rt.getPolicyByID)
	mux.HandleFunc("/v1/compare", rt.comparePolicies)
	mux.HandleFunc("/v1/comparisons/", rt.getComparisonByID)
	mux.HandleFunc("/v1/qa/ask", rt.ask)
	if rt.httpMetrics != nil {
		mux.Handle("/metrics", rt.httpMetrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.httpMetrics != nil {
		handler = rt.httpMetrics.Middleware(rt.cfg.Service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) policies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadPolicy(w, r)
	case http.MethodGet:
		rt.listPolicies(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadPolicy(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	policy, err := rt.ingest.Upload(
		r.Context(),
		r.FormValue("name"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, policy)
}

func (rt *Router) listPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := rt.reader.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": policies})
}

func (rt *Router) getPolicyByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/policies/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "policy id is required"})
		return
	}

	policy, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (rt *Router) comparePolicies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		PolicyAID string `json:"policy_a_id"`
		PolicyBID string `json:"policy_b_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.PolicyAID == "" || req.PolicyBID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "policy_a_id and policy_b_id are required"})
		return
	}

	result, err := rt.comparator.Compare(r.Context(), req.PolicyAID, req.PolicyBID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getComparisonByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/comparisons/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "comparison id is required"})
		return
	}

	result, err := rt.comparisons.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question  string   `json:"question"`
		PolicyIDs []string `json:"policy_ids"`
		TopK      int      `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	started := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), req.Question, req.PolicyIDs, req.TopK)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.httpMetrics != nil {
		rt.httpMetrics.RecordQAObservation(rt.cfg.Service, len(answer.Sources), time.Since(started))
	}
	writeJSON(w, http.StatusOK, answer)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
