// Package web serves the per-client status surface: a JSON status endpoint
// for the dashboard, health and metrics endpoints, a live log stream over
// websocket and the downloadable run report.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/wifisim/internal/adapters/reporting"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
	"github.com/lcalzada-xor/wifisim/internal/core/services/client"
	"github.com/lcalzada-xor/wifisim/internal/logsink"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The status server is reachable only inside the lab network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const logTailSize = 50

// StatusSource provides the externally visible client state.
type StatusSource interface {
	Snapshot() client.Snapshot
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	addr     string
	source   StatusSource
	audit    ports.AuditRepository
	sink     *logsink.FileSink
	exporter *reporting.PDFExporter
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	srv     *http.Server
}

// NewServer creates a new status server.
func NewServer(addr string, source StatusSource, audit ports.AuditRepository, sink *logsink.FileSink, exporter *reporting.PDFExporter, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		source:   source,
		audit:    audit,
		sink:     sink,
		exporter: exporter,
		log:      logger,
		clients:  make(map[*websocket.Conn]bool),
	}
}

// Run starts the server and blocks until the context ends.
func (s *Server) Run(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/events/roams", s.handleRoams).Methods(http.MethodGet)
	router.HandleFunc("/events/auth", s.handleAuthAttempts).Methods(http.MethodGet)
	router.HandleFunc("/report.pdf", s.handleReport).Methods(http.MethodGet)
	router.HandleFunc("/ws/logs", s.handleLogStream)
	router.Handle("/metrics", promhttp.Handler())

	if s.sink != nil {
		s.sink.SetBroadcast(s.broadcastLine)
	}

	s.srv = &http.Server{
		Addr:    s.addr,
		Handler: otelhttp.NewHandler(router, "status-server"),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("status server shutdown error", "error", err)
		}
	}()

	s.log.Info("status server listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.source.Snapshot()

	var tail []string
	if s.sink != nil {
		tail = s.sink.Tail(logTailSize)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"role":       snapshot.Role,
		"interface":  snapshot.Interface,
		"hostname":   snapshot.Hostname,
		"session":    snapshot.Session,
		"stats":      snapshot.Stats,
		"config":     snapshot.Config,
		"last_error": snapshot.LastError,
		"log_tail":   tail,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoams(w http.ResponseWriter, r *http.Request) {
	events, err := s.audit.ListRoamEvents(s.source.Snapshot().Interface, 100)
	if err != nil {
		http.Error(w, "Failed to list roam events", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"roams": events})
}

func (s *Server) handleAuthAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.audit.ListAuthAttempts(s.source.Snapshot().Interface, 100)
	if err != nil {
		http.Error(w, "Failed to list auth attempts", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"attempts": attempts})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snapshot := s.source.Snapshot()
	data, err := s.exporter.Export(reporting.RunReport{
		Role:      snapshot.Role,
		Interface: snapshot.Interface,
		Hostname:  snapshot.Hostname,
		Session:   snapshot.Session,
		Stats:     snapshot.Stats,
	})
	if err != nil {
		s.log.Warn("report export failed", "error", err)
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=wifisim_%s_report.pdf", snapshot.Interface))
	w.Write(data)
}

func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// The stream is write-only; reading just detects the peer going away.
	go func() {
		defer conn.Close()
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) broadcastLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
