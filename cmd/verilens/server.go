// cmd/verilens/server.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server exposes the assessment pipeline over HTTP.
type Server struct {
	cfg      *serverConfig
	pipeline *Pipeline
	metrics  *MetricsCollector
	logger   *zap.Logger
	router   *mux.Router

	upgrader  websocket.Upgrader
	wsMutex   sync.Mutex
	wsClients map[*websocket.Conn]bool
}

// serverConfig narrows Config to what the transport layer needs.
type serverConfig struct {
	MaxImageSize int64
	StaticDir    string
}

// liveEvent is the summary pushed to dashboard websocket clients after each
// completed assessment. Deliberately excludes the claim text and evidence
// snippets to keep the frame small.
type liveEvent struct {
	Time            time.Time `json:"time"`
	IsFakeNews      string    `json:"is_fake_news"`
	FactCheckStatus string    `json:"fact_check_status"`
	Confidence      float64   `json:"confidence"`
	EvidenceCount   int       `json:"evidence_count"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewServer builds the router and handlers.
func NewServer(cfg *Config, pipeline *Pipeline, metrics *MetricsCollector, logger *zap.Logger) *Server {
	s := &Server{
		cfg: &serverConfig{
			MaxImageSize: cfg.MaxImageSize,
			StaticDir:    cfg.StaticDir,
		},
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		wsClients: make(map[*websocket.Conn]bool),
	}

	r := mux.NewRouter()
	r.Use(s.corsMiddleware)
	r.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/live", s.handleLive).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// corsMiddleware allows the dev frontend to call the API from any origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleAnalyze accepts a multipart form with a "news" JSON field and an
// "image" file, validates both before any provider call, and runs the
// pipeline.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	newsText, imageData, err := s.parseAnalyzeRequest(r)
	if err != nil {
		s.metrics.RecordRejected()
		s.writeError(w, err)
		return
	}

	s.metrics.RecordRequest()
	assessment, err := s.pipeline.Analyze(r.Context(), newsText, imageData)
	if err != nil {
		s.metrics.RecordFailure()
		s.writeError(w, err)
		return
	}

	s.metrics.RecordVerdict(assessment.IsFakeNews.Label)
	s.broadcast(liveEvent{
		Time:            time.Now(),
		IsFakeNews:      assessment.IsFakeNews.Label,
		FactCheckStatus: assessment.FactCheckStatus.Label,
		Confidence:      assessment.IsFakeNews.Confidence,
		EvidenceCount:   len(assessment.Evidence),
	})
	s.respondJSON(w, http.StatusOK, assessment)
}

// parseAnalyzeRequest validates and extracts the request parts. Runs before
// any provider call so invalid uploads never cost an API request.
func (s *Server) parseAnalyzeRequest(r *http.Request) (string, []byte, error) {
	// Leave headroom for the JSON field beside the image
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.MaxImageSize+64*1024)
	if err := r.ParseMultipartForm(s.cfg.MaxImageSize + 64*1024); err != nil {
		return "", nil, NewValidationError(ErrValidationImageSize,
			fmt.Sprintf("request too large or malformed (limit %d MiB)", s.cfg.MaxImageSize/1024/1024))
	}

	var req AnalyzeRequest
	newsField := r.FormValue("news")
	if newsField == "" {
		return "", nil, NewValidationError(ErrValidationBadPayload, "missing \"news\" form field")
	}
	if err := json.Unmarshal([]byte(newsField), &req); err != nil {
		return "", nil, NewValidationError(ErrValidationBadPayload, "\"news\" field is not valid JSON")
	}
	if strings.TrimSpace(req.NewsText) == "" {
		return "", nil, NewValidationError(ErrValidationEmptyText, "news_text must not be empty")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", nil, NewValidationError(ErrValidationBadPayload, "missing \"image\" file upload")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, NewValidationError(ErrValidationNotImage, "uploaded file must be an image")
	}
	if header.Size > s.cfg.MaxImageSize {
		return "", nil, NewValidationError(ErrValidationImageSize,
			fmt.Sprintf("image exceeds the %d MiB limit", s.cfg.MaxImageSize/1024/1024))
	}

	imageData, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageSize+1))
	if err != nil {
		return "", nil, NewImageError("failed to read uploaded image", err)
	}
	if int64(len(imageData)) > s.cfg.MaxImageSize {
		return "", nil, NewValidationError(ErrValidationImageSize,
			fmt.Sprintf("image exceeds the %d MiB limit", s.cfg.MaxImageSize/1024/1024))
	}
	return req.NewsText, imageData, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.metrics.Collect())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.StaticDir+"/index.html")
}

// handleLive upgrades to a websocket and registers the connection for
// assessment summaries. Reads are discarded; the socket is send-only.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	go func() {
		defer func() {
			s.wsMutex.Lock()
			delete(s.wsClients, conn)
			s.wsMutex.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast pushes a live event to all connected dashboard clients, dropping
// connections that fail to accept the write.
func (s *Server) broadcast(event liveEvent) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	for conn := range s.wsClients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(s.wsClients, conn)
		}
	}
}

// writeError maps an application error to a single user-visible response.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	ae := AsAppError(err)

	status := http.StatusInternalServerError
	switch ae.Type {
	case ErrorTypeValidation:
		status = http.StatusBadRequest
	case ErrorTypeFactCheck, ErrorTypeVision:
		status = http.StatusBadGateway
	case ErrorTypeVerdict:
		// No evidence for the claim: not a server fault
		status = http.StatusUnprocessableEntity
	}

	if status >= 500 {
		s.logger.Error("request failed", zap.String("code", ae.Code), zap.Error(ae))
	} else {
		s.logger.Info("request rejected", zap.String("code", ae.Code), zap.String("reason", ae.Message))
	}
	s.respondJSON(w, status, errorResponse{Error: ae.Message, Code: ae.Code})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}
