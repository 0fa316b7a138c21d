// Package server is the login-gated web UI: a symbol picker, the analysis
// report with its price chart, and a websocket that streams pipeline
// progress.
package server

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tradelens/tradelens/internal/analysis"
	"github.com/tradelens/tradelens/internal/config"
	"github.com/tradelens/tradelens/internal/models"
	"github.com/tradelens/tradelens/internal/storage"
)

// Analyzer runs the insight pipeline for one symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, progress analysis.ProgressFunc) (*models.AnalysisResult, error)
}

// HistoryStore serves past analyses and verifies login credentials.
type HistoryStore interface {
	VerifyUser(ctx context.Context, username, password string) error
	ListAnalyses(ctx context.Context, symbol string, limit int, beforeID int64) ([]*storage.AnalysisRecord, error)
}

type Server struct {
	cfg      *config.Config
	mu       sync.RWMutex
	analyzer Analyzer
	store    HistoryStore
	sessions *SessionStore
	symbols  []Symbol
	tmpl     *template.Template
	upgrader websocket.Upgrader
	router   *mux.Router
}

func NewServer(cfg *config.Config, analyzer Analyzer, store HistoryStore) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	symbols, err := LoadSymbols(cfg.SymbolsFile)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		store:    store,
		sessions: NewSessionStore(24 * time.Hour),
		symbols:  symbols,
		tmpl:     tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.Handle("/", s.requireAuth(http.HandlerFunc(s.handleIndex))).Methods(http.MethodGet)
	r.Handle("/home", s.requireAuth(http.HandlerFunc(s.handleHome))).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/chart/{symbol}", s.requireAuth(http.HandlerFunc(s.handleChart))).Methods(http.MethodGet)
	r.Handle("/api/history", s.requireAuth(http.HandlerFunc(s.handleHistory))).Methods(http.MethodGet)
	r.Handle("/ws/analyze", s.requireAuth(http.HandlerFunc(s.handleAnalyzeWS))).Methods(http.MethodGet)

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetAnalyzer swaps the analysis pipeline, used when the configuration is
// reloaded while serving.
func (s *Server) SetAnalyzer(analyzer Analyzer) {
	if analyzer == nil {
		return
	}
	s.mu.Lock()
	s.analyzer = analyzer
	s.mu.Unlock()
}

func (s *Server) getAnalyzer() Analyzer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzer
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("http server listening on %s", s.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requireAuth redirects browser requests without a valid session to /login.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		username, ok := s.sessions.Get(cookie.Value)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUsername(r.Context(), username)))
	})
}

type contextKey string

const usernameKey contextKey = "username"

func withUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

func usernameFrom(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// checkCredentials verifies against the user table when a store is wired,
// otherwise against the configured admin credentials.
func (s *Server) checkCredentials(ctx context.Context, username, password string) bool {
	if s.store != nil {
		return s.store.VerifyUser(ctx, username, password) == nil
	}
	return s.cfg.AdminUser != "" && username == s.cfg.AdminUser &&
		s.cfg.AdminPassword != "" && password == s.cfg.AdminPassword
}
