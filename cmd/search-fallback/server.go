package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/fallback"
	"github.com/WessleyAI/schedule-fallback/pkg/mid"
)

const maxRequestBody = 64 << 10

func newHandler(a *app, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /v1/fallback", handleFallback(a, logger))
	mux.HandleFunc("GET /v1/drafts/{series}/{season}", handleDrafts(a, logger))

	return mid.Chain(mux,
		mid.OTel("search-fallback"),
		mid.RequestID(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.MaxBody(maxRequestBody),
	)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	mid.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFallback runs discovery synchronously. A run takes minutes, so
// callers should use a generous client timeout or the NATS worker.
func handleFallback(a *app, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fallback.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mid.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			mid.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		out, err := a.runAndStage(r.Context(), req)
		if err != nil {
			status := http.StatusInternalServerError
			var ce *domain.ConfigurationError
			if errors.As(err, &ce) {
				status = http.StatusServiceUnavailable
			}
			logger.Error("fallback run failed", "series", req.SeriesID, "season", req.Season,
				"request_id", mid.RequestIDFrom(r.Context()), "err", err)
			mid.WriteError(w, status, err.Error())
			return
		}
		mid.WriteJSON(w, http.StatusOK, out)
	}
}

func handleDrafts(a *app, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.stager == nil {
			mid.WriteError(w, http.StatusNotFound, "staging is not configured")
			return
		}
		season, err := strconv.Atoi(r.PathValue("season"))
		if err != nil {
			mid.WriteError(w, http.StatusBadRequest, "season must be a year")
			return
		}
		events, err := a.stager.Events(r.Context(), r.PathValue("series"), season)
		if err != nil {
			logger.Error("list staged events", "err", err)
			mid.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		mid.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}
