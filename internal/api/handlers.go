package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tradecore/engine/internal/screening"
)

// HealthChecker reports per-exchange connectivity health, implemented by
// the top-level supervisor.
type HealthChecker interface {
	ActorHealth() map[string]bool
}

// ScreeningReader is the read surface the screening HTTP routes need.
type ScreeningReader interface {
	Get(exchange, symbol string) (screening.Result, bool)
	List(exchange string) []screening.Result
	History(exchange, symbol string, limit int) []screening.Result
	KnownExchange(exchange string) bool
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleHealth(c echo.Context) error {
	actors := s.health.ActorHealth()
	allHealthy := true
	for _, ok := range actors {
		if !ok {
			allHealthy = false
			break
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"actors":      actors,
		"all_healthy": allHealthy,
	})
}

func (s *Server) handleScreeningSymbols(c echo.Context) error {
	exchange := c.Param("exchange")
	if !s.screening.KnownExchange(exchange) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown exchange")
	}

	page := clampInt(parseIntOr(c.QueryParam("page"), 1), 1, 1<<31-1)
	limit := clampInt(parseIntOr(c.QueryParam("limit"), 10), 1, 100)

	results := s.screening.List(exchange)
	if level := c.QueryParam("level"); level != "" {
		filtered := results[:0]
		for _, r := range results {
			if string(r.Recommendation) == level {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	start := (page - 1) * limit
	if start > len(results) {
		start = len(results)
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"page":    page,
		"limit":   limit,
		"total":   len(results),
		"results": results[start:end],
	})
}

func (s *Server) handleScreeningSymbol(c echo.Context) error {
	exchange, symbol := c.Param("exchange"), c.Param("symbol")
	if !s.screening.KnownExchange(exchange) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown exchange")
	}
	result, ok := s.screening.Get(exchange, symbol)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no screening result for symbol")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleScreeningHistory(c echo.Context) error {
	exchange, symbol := c.Param("exchange"), c.Param("symbol")
	if !s.screening.KnownExchange(exchange) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown exchange")
	}
	limit := clampInt(parseIntOr(c.QueryParam("limit"), 100), 1, 1000)
	return c.JSON(http.StatusOK, s.screening.History(exchange, symbol, limit))
}

func parseIntOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
