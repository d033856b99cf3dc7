// Package stubserver is an in-process stand-in for an OpenAI-compatible
// local API server. It exists for tests and can inject contract violations.
package stubserver

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

// Model is one entry of the /v1/models listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Options tweaks the stub's behavior. The zero value serves a conforming API.
type Options struct {
	Service string
	Models  []Model
	// RawModels, when set, is served verbatim as the /v1/models body.
	RawModels string

	DisableCORS       bool
	HealthStatus      string
	HealthDelay       time.Duration
	HealthContentType string
	OmitHealthFields  []string
	// UnavailableFor makes the first N /health requests answer 503.
	UnavailableFor int64
	// FailHealthAfter makes /health answer 500 once it served N requests.
	FailHealthAfter int64

	NotFoundStatus int
	OptionsStatus  int

	// RawChat, when set, is served verbatim as a 200 chat completions body.
	RawChat string
}

// Server wraps an httptest.Server running the stub API.
type Server struct {
	*httptest.Server

	opts       Options
	healthHits atomic.Int64
	inFlight   atomic.Int64
	maxFlight  atomic.Int64
	conns      atomic.Int64
}

// New starts a stub server; callers must Close it.
func New(opts Options) *Server {
	s := &Server{opts: withDefaults(opts)}
	s.Server = httptest.NewUnstartedServer(s.Handler())
	s.Server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			s.conns.Add(1)
		}
	}
	s.Start()
	return s
}

func withDefaults(opts Options) Options {
	if opts.Service == "" {
		opts.Service = "GPT4All Local API"
	}
	if opts.Models == nil {
		opts.Models = []Model{{ID: "gpt4all-test", Object: constants.ObjectModel, Created: 1640995200, OwnedBy: "gpt4all"}}
	}
	if opts.HealthStatus == "" {
		opts.HealthStatus = constants.HealthStatusOK
	}
	if opts.HealthContentType == "" {
		opts.HealthContentType = constants.ContentTypeJSON
	}
	if opts.NotFoundStatus == 0 {
		opts.NotFoundStatus = http.StatusNotFound
	}
	if opts.OptionsStatus == 0 {
		opts.OptionsStatus = http.StatusOK
	}
	return opts
}

// Handler builds the router without starting a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.trackInFlight)
	if !s.opts.DisableCORS {
		r.Use(cors)
	}
	r.Use(s.preflight)

	r.Get(constants.PathHealth, s.handleHealth)
	r.Get(constants.PathModels, s.handleModels)
	r.Post(constants.PathChatCompletions, s.handleChatCompletions)
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	return r
}

// HealthHits returns how many /health requests were served.
func (s *Server) HealthHits() int64 {
	return s.healthHits.Load()
}

// Connections returns how many TCP connections clients opened.
func (s *Server) Connections() int64 {
	return s.conns.Load()
}

// MaxInFlight returns the highest number of requests handled at once.
func (s *Server) MaxInFlight() int64 {
	return s.maxFlight.Load()
}

func (s *Server) trackInFlight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		for {
			peak := s.maxFlight.Load()
			if n <= peak || s.maxFlight.CompareAndSwap(peak, n) {
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.HeaderAccessControlAllowOrigin, "*")
		w.Header().Set(constants.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
		w.Header().Set(constants.HeaderAccessControlAllowHeaders, constants.HeaderContentType)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(s.opts.OptionsStatus)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hit := s.healthHits.Add(1)

	if hit <= s.opts.UnavailableFor {
		writeJSON(w, http.StatusServiceUnavailable, constants.ContentTypeJSON, errorBody("Service Unavailable", "starting up"))
		return
	}
	if s.opts.FailHealthAfter > 0 && hit > s.opts.FailHealthAfter {
		writeJSON(w, http.StatusInternalServerError, constants.ContentTypeJSON, errorBody("Internal Server Error", "overloaded"))
		return
	}
	if s.opts.HealthDelay > 0 {
		select {
		case <-time.After(s.opts.HealthDelay):
		case <-r.Context().Done():
			return
		}
	}

	body := map[string]any{
		"status":    s.opts.HealthStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   s.opts.Service,
	}
	for _, field := range s.opts.OmitHealthFields {
		delete(body, field)
	}

	writeJSON(w, http.StatusOK, s.opts.HealthContentType, body)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.opts.RawModels != "" {
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.opts.RawModels))
		return
	}

	writeJSON(w, http.StatusOK, constants.ContentTypeJSON, map[string]any{
		"object": constants.ObjectList,
		"data":   s.opts.Models,
	})
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string            `json:"model"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, constants.ContentTypeJSON, errorBody("Bad Request", "Invalid JSON in request body"))
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, constants.ContentTypeJSON, errorBody("Bad Request", "Missing required fields: model, messages"))
		return
	}
	if s.opts.RawChat != "" {
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.opts.RawChat))
		return
	}

	writeJSON(w, http.StatusOK, constants.ContentTypeJSON, map[string]any{
		"id":      fmt.Sprintf("chatcmpl-%d", time.Now().Unix()),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": "stub"},
			"finish_reason": "stop",
		}},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.opts.NotFoundStatus, constants.ContentTypeJSON,
		errorBody("Not Found", "Endpoint "+strings.TrimSpace(r.URL.Path)+" not found"))
}

func errorBody(kind, message string) map[string]string {
	return map[string]string{"error": kind, "message": message}
}

func writeJSON(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set(constants.HeaderContentType, contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
