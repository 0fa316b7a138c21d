package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradelens/tradelens/internal/models"
)

type loginData struct {
	Error string
}

type homeData struct {
	Username string
	Symbols  []Symbol
	Selected string
	Result   *models.AnalysisResult
	Error    string
}

// PriceClass selects the CSS class for the change-percent figure.
func (d homeData) PriceClass() string {
	if d.Result != nil && d.Result.ChangePercent < 0 {
		return "negative"
	}
	return "positive"
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("render %s: %v", name, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "login.html", loginData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if !s.checkCredentials(r.Context(), username, password) {
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, "login.html", loginData{Error: "Invalid username or password."})
		return
	}

	token, err := s.sessions.Create(username)
	if err != nil {
		log.Printf("create session: %v", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.Destroy(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := homeData{
		Username: usernameFrom(r.Context()),
		Symbols:  s.symbols,
	}

	if r.Method == http.MethodPost {
		symbol := strings.TrimSpace(r.FormValue("symbol"))
		data.Selected = strings.ToUpper(symbol)

		result, err := s.getAnalyzer().Analyze(r.Context(), symbol, nil)
		if err != nil {
			data.Error = err.Error()
		} else {
			data.Result = result
			data.Selected = result.Symbol
		}
	}

	s.render(w, "home.html", data)
}

// handleChart re-runs the analysis for the symbol, which normally hits the
// result cache populated by the page request that embedded this chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	result, err := s.getAnalyzer().Analyze(r.Context(), symbol, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if result.Series == nil || len(result.Series.Points) == 0 {
		http.Error(w, "no price data available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPriceChart(w, result.Series); err != nil {
		log.Printf("render chart for %s: %v", symbol, err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "history not available", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))

	limit := 20
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var beforeID int64
	if v := q.Get("before"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid before cursor", http.StatusBadRequest)
			return
		}
		beforeID = n
	}

	records, err := s.store.ListAnalyses(r.Context(), symbol, limit, beforeID)
	if err != nil {
		log.Printf("list analyses: %v", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"analyses": records})
}

type wsProgress struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// handleAnalyzeWS streams pipeline stage updates over a websocket while the
// analysis runs, then closes with a final result frame.
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	send := func(stage, detail string) {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(wsProgress{Stage: stage, Detail: detail}); err != nil {
			log.Printf("websocket write: %v", err)
		}
	}

	result, err := s.getAnalyzer().Analyze(r.Context(), symbol, send)
	if err != nil {
		send("error", err.Error())
		return
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(map[string]any{
		"stage":          "result",
		"detail":         string(result.Advice.Recommendation),
		"symbol":         result.Symbol,
		"recommendation": result.Advice.Recommendation,
		"confidence":     result.Advice.Confidence,
		"trend":          result.Advice.Trend,
	}); err != nil {
		log.Printf("websocket write: %v", err)
	}
}
