package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/assetservice"
	"github.com/suntyn/sitegen/internal/publisher"
	"github.com/suntyn/sitegen/internal/sitemap"
)

const (
	msgRegenerated = "Sitemap and robots.txt regenerated successfully"
	msgBusy        = "Sitemap regeneration already in progress"
	msgFailed      = "Failed to regenerate sitemap"
)

// Handler holds API route handlers.
type Handler struct {
	svc *assetservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *assetservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GenerateSitemap handles GET and POST /api/generate-sitemap.
//
//	@Summary		Regenerate robots.txt and all sitemaps
//	@Tags			generation
//	@Produce		json
//	@Success		200	{object}	GenerateResponse
//	@Failure		409	{object}	GenerateFailure
//	@Failure		500	{object}	GenerateFailure
//	@Security		BearerAuth
//	@Router			/generate-sitemap [get]
func (h *Handler) GenerateSitemap(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Regenerate(r.Context(), publisher.TriggerManual)
	if err != nil {
		if errors.Is(err, apperr.ErrBusy) {
			writeJSON(w, http.StatusConflict, GenerateFailure{
				Success: false,
				Message: msgBusy,
				Error:   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, GenerateFailure{
			Success: false,
			Message: msgFailed,
			Error:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Success:   true,
		Message:   msgRegenerated,
		Timestamp: sitemap.FormatTimestamp(res.FinishedAt),
		RunID:     res.RunID,
		Files:     res.Files,
	})
}

// ListGenerations handles GET /api/generations.
//
//	@Summary		List recent publish runs, newest first
//	@Tags			generation
//	@Produce		json
//	@Param			limit	query		int	false	"Max runs (default 20)"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/generations [get]
func (h *Handler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		slog.Error("list generations failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// ListRoutes handles GET /api/routes.
//
//	@Summary		List the route catalog
//	@Tags			routes
//	@Produce		json
//	@Param			kind	query		string	false	"Filter by kind"	Enums(static, tool)
//	@Success		200		{object}	RouteListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes [get]
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.svc.Routes(r.URL.Query().Get("kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, RouteListResponse{Routes: routes, Total: len(routes)})
}
