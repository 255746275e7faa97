package api

import (
	"github.com/suntyn/sitegen/internal/catalog"
	"github.com/suntyn/sitegen/internal/history"
)

// GenerateResponse is returned after a successful regeneration.
type GenerateResponse struct {
	Success   bool               `json:"success" example:"true" validate:"required"`
	Message   string             `json:"message" example:"Sitemap and robots.txt regenerated successfully" validate:"required"`
	Timestamp string             `json:"timestamp" example:"2025-01-15T10:30:53.500Z" validate:"required"`
	RunID     string             `json:"run_id" example:"7f1c2a9e-3b0d-4a8e-9c55-0e2d6f1b4a77"`
	Files     []history.Artifact `json:"files" validate:"required"`
}

// GenerateFailure is returned when a regeneration is rejected or fails.
type GenerateFailure struct {
	Success bool   `json:"success" example:"false" validate:"required"`
	Message string `json:"message" example:"Failed to regenerate sitemap" validate:"required"`
	Error   string `json:"error" example:"open client/public/sitemap.xml: permission denied" validate:"required"`
}

// RunListResponse wraps recent publish runs.
type RunListResponse struct {
	Runs []history.Run `json:"runs" validate:"required"`
}

// RouteListResponse wraps route catalog entries.
type RouteListResponse struct {
	Routes []catalog.RouteEntry `json:"routes" validate:"required"`
	Total  int                  `json:"total" example:"120" validate:"required"`
}
