package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/tradelens/tradelens/internal/analysis"
	"github.com/tradelens/tradelens/internal/config"
	"github.com/tradelens/tradelens/internal/models"
	"github.com/tradelens/tradelens/internal/storage"
)

type fakeAnalyzer struct {
	result *models.AnalysisResult
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symbol string, progress analysis.ProgressFunc) (*models.AnalysisResult, error) {
	f.calls++
	if progress != nil {
		progress("prices", "fetching")
		progress("done", "BUY")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeHistory struct {
	records []*storage.AnalysisRecord
}

func (f *fakeHistory) VerifyUser(_ context.Context, username, password string) error {
	if username == "trader" && password == "hunter2" {
		return nil
	}
	return storage.ErrInvalidCredentials
}

func (f *fakeHistory) ListAnalyses(_ context.Context, symbol string, limit int, beforeID int64) ([]*storage.AnalysisRecord, error) {
	out := make([]*storage.AnalysisRecord, 0, len(f.records))
	for _, rec := range f.records {
		if symbol != "" && rec.Symbol != symbol {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func sampleResult(symbol string) *models.AnalysisResult {
	now := time.Now()
	return &models.AnalysisResult{
		Symbol: symbol,
		Series: &models.PriceSeries{
			Symbol:   symbol,
			Interval: "5min",
			Points: []models.PricePoint{
				{Time: now.Add(-10 * time.Minute), Price: decimal.NewFromFloat(100)},
				{Time: now, Price: decimal.NewFromFloat(105)},
			},
			FetchedAt: now,
		},
		Articles: []*models.Article{
			{Title: "Shares rally on earnings beat", URL: "https://example.com/a", Source: "Example Wire"},
		},
		Scores: []models.SentimentScore{
			{ArticleURL: "https://example.com/a", Polarity: 0.5, Label: "positive"},
		},
		Advice: &models.Advice{
			Symbol:         symbol,
			Recommendation: models.Buy,
			Confidence:     0.8,
			Trend:          models.TrendUp,
			MeanSentiment:  0.5,
			Reasoning:      "price rose 5.00% with positive news sentiment",
		},
		LatestPrice:   decimal.NewFromFloat(105),
		ChangePercent: 5,
		GeneratedAt:   now,
	}
}

func newTestServer(t *testing.T, analyzer Analyzer, store HistoryStore) *Server {
	t.Helper()
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	srv, err := NewServer(cfg, analyzer, store)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func login(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {"trader"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, &fakeHistory{})

	form := url.Values{"username": {"trader"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Error("expected error message on login page")
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, &fakeHistory{})

	for _, path := range []string{"/", "/home", "/chart/AAPL", "/api/history"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusSeeOther)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("%s: redirect to %q, want /login", path, loc)
		}
	}
}

func TestHomeShowsAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult("AAPL")}
	srv := newTestServer(t, analyzer, &fakeHistory{})
	cookie := login(t, srv)

	form := url.Values{"symbol": {"AAPL"}}
	req := httptest.NewRequest(http.MethodPost, "/home", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{"trader", "BUY", "Shares rally on earnings beat", "/chart/AAPL", "+0.50"} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}
	if analyzer.calls != 1 {
		t.Errorf("analyzer called %d times, want 1", analyzer.calls)
	}
}

func TestHomeShowsAnalyzerError(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("market data unavailable for ZZZZ")}
	srv := newTestServer(t, analyzer, &fakeHistory{})
	cookie := login(t, srv)

	form := url.Values{"symbol": {"ZZZZ"}}
	req := httptest.NewRequest(http.MethodPost, "/home", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "market data unavailable for ZZZZ") {
		t.Error("expected analyzer error on the page")
	}
}

func TestChartRendersSeries(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, &fakeHistory{})
	cookie := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/chart/AAPL", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "AAPL close prices") {
		t.Error("chart page missing title")
	}
}

func TestHistoryReturnsJSON(t *testing.T) {
	history := &fakeHistory{
		records: []*storage.AnalysisRecord{
			{ID: 2, Symbol: "AAPL", Recommendation: "BUY", Confidence: 0.8},
			{ID: 1, Symbol: "MSFT", Recommendation: "HOLD", Confidence: 0.4},
		},
	}
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, history)
	cookie := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/history?symbol=AAPL&limit=10", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var payload struct {
		Analyses []*storage.AnalysisRecord `json:"analyses"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(payload.Analyses) != 1 || payload.Analyses[0].Symbol != "AAPL" {
		t.Fatalf("unexpected history payload: %+v", payload.Analyses)
	}
}

func TestHistoryRejectsBadParams(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, &fakeHistory{})
	cookie := login(t, srv)

	for _, query := range []string{"limit=0", "limit=9999", "before=abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/history?"+query, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", query, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, &fakeHistory{})
	cookie := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status after logout = %d, want redirect", rec.Code)
	}
}

func TestAnalyzeWebSocketStreamsProgress(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, &fakeHistory{})
	cookie := login(t, srv)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/analyze?symbol=AAPL"
	header := http.Header{}
	header.Add("Cookie", cookie.String())

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	var stages []string
	var final map[string]any
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		stage, _ := msg["stage"].(string)
		stages = append(stages, stage)
		if stage == "result" {
			final = msg
			break
		}
	}

	want := []string{"prices", "done", "result"}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stages = %v, want %v", stages, want)
		}
	}
	if final["recommendation"] != "BUY" || final["symbol"] != "AAPL" {
		t.Errorf("unexpected final frame %v", final)
	}
}

func TestAnalyzeWebSocketRequiresSymbol(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{result: sampleResult("AAPL")}, &fakeHistory{})
	cookie := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/ws/analyze", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	token, err := store.Create("trader")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := store.Get(token); !ok {
		t.Fatal("fresh session should resolve")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := store.Get(token); ok {
		t.Fatal("expired session should not resolve")
	}
}
