package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tradecore/engine/internal/screening"
)

type fakeHealth struct{ actors map[string]bool }

func (f *fakeHealth) ActorHealth() map[string]bool { return f.actors }

type fakeScreening struct {
	known   map[string]bool
	results map[string]screening.Result
}

func (f *fakeScreening) KnownExchange(exchange string) bool { return f.known[exchange] }

func (f *fakeScreening) Get(exchange, symbol string) (screening.Result, bool) {
	r, ok := f.results[exchange+":"+symbol]
	return r, ok
}

func (f *fakeScreening) List(exchange string) []screening.Result {
	var out []screening.Result
	for _, r := range f.results {
		if r.Exchange == exchange {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeScreening) History(exchange, symbol string, limit int) []screening.Result {
	if r, ok := f.Get(exchange, symbol); ok {
		return []screening.Result{r}
	}
	return nil
}

func testServer() *Server {
	health := &fakeHealth{actors: map[string]bool{"binance": true}}
	scr := &fakeScreening{
		known: map[string]bool{"binance": true},
		results: map[string]screening.Result{
			"binance:BTC-USD": {Symbol: "BTC-USD", Exchange: "binance", OverallScore: 0.8, Recommendation: screening.BestCandidate, ScreenedAt: time.Now()},
		},
	}
	return NewServer(Config{Port: ":0", APIKeys: []string{"test-key"}, RateLimitPerMinute: 1000}, health, scr)
}

func TestHealthEndpointIsUnauthenticated(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestScreeningEndpointRejectsMissingAuth(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/api/screening/symbols/binance", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestScreeningEndpointRejectsUnknownExchange(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/api/screening/symbols/kraken", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestScreeningEndpointReturnsResults(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/api/screening/symbols/binance", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
