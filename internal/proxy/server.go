package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tradetok/copytrade/internal/engine"
)

// maxEstimateBody caps forwarded request bodies.
const maxEstimateBody = 1 << 20

// Server exposes same-origin trade endpoints that forward to the engine
// with the server-held API key, so the key never reaches a browser or
// script caller.
type Server struct {
	engine *engine.Client
	log    *logrus.Entry
}

func NewServer(engineClient *engine.Client, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{engine: engineClient, log: log}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Post("/api/trade/estimate", s.handleEstimate)
	r.Get("/api/trade/status", s.handleStatus)
	return r
}

// handleEstimate forwards the quote request body unmodified. Upstream
// rejections surface their message to the caller; everything else that goes
// wrong is a generic bad request.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEstimateBody))
	if err != nil {
		s.writeError(w, "bad_request")
		return
	}
	status, raw, err := s.engine.EstimateRaw(r.Context(), body)
	if err != nil {
		s.log.WithError(err).Warn("estimate forward failed")
		s.writeError(w, "bad_request")
		return
	}
	if status < 200 || status >= 300 {
		s.writeError(w, upstreamText(raw))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

// handleStatus forwards a settlement status lookup and returns the upstream
// JSON verbatim.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	txHash := strings.TrimSpace(r.URL.Query().Get("txHash"))
	if txHash == "" {
		s.writeError(w, "missing_params")
		return
	}
	status, raw, err := s.engine.StatusRaw(r.Context(), txHash)
	if err != nil {
		s.log.WithError(err).Warn("status forward failed")
		s.writeError(w, "bad_request")
		return
	}
	if status < 200 || status >= 300 {
		s.writeError(w, upstreamText(raw))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) writeError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// upstreamText extracts the upstream error message, keeping the engine's
// own wording when it sent one.
func upstreamText(raw []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if strings.TrimSpace(parsed.Error) != "" {
			return parsed.Error
		}
		if strings.TrimSpace(parsed.Message) != "" {
			return parsed.Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "bad_request"
	}
	return text
}
