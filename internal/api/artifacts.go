package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/assetservice"
	"github.com/suntyn/sitegen/internal/checksum"
	"github.com/suntyn/sitegen/internal/sitemap"
)

// ArtifactHandler serves the published crawler files at the site root.
type ArtifactHandler struct {
	svc *assetservice.Service
}

// NewArtifactHandler creates a handler over svc.
func NewArtifactHandler(svc *assetservice.Service) *ArtifactHandler {
	return &ArtifactHandler{svc: svc}
}

// Mount registers GET /<name> for every generated file.
func (h *ArtifactHandler) Mount(r chi.Router) {
	for _, name := range sitemap.Names {
		r.Get("/"+name, h.ServeFile(name))
	}
}

// ServeFile returns a handler for one artifact. The file is read on every
// request, so a regeneration is visible immediately. A file that has not
// been generated yet answers 404 with a plain "<name> not found" body.
func (h *ArtifactHandler) ServeFile(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		art, err := h.svc.ReadArtifact(r.Context(), name)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				slog.Error("read artifact failed", slog.String("name", name), slog.String("error", err.Error()))
			}
			writeText(w, http.StatusNotFound, name+" not found")
			return
		}
		w.Header().Set("Content-Type", art.ContentType)
		w.Header().Set("ETag", checksum.ETag(art.Content))
		http.ServeContent(w, r, name, art.ModTime, bytes.NewReader(art.Content))
	}
}
