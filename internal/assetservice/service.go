// Package assetservice is the application layer shared by the HTTP API and
// the MCP server: it triggers publish passes and reads back the published
// artifacts, the route catalog and the run history.
package assetservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/catalog"
	"github.com/suntyn/sitegen/internal/checksum"
	"github.com/suntyn/sitegen/internal/history"
	"github.com/suntyn/sitegen/internal/publisher"
	"github.com/suntyn/sitegen/internal/sitemap"
	"github.com/suntyn/sitegen/internal/storage"
)

// Publisher runs publish passes.
type Publisher interface {
	PublishAll(ctx context.Context, trigger publisher.Trigger) (*publisher.Result, error)
}

// RunLister reads recent publish runs.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Artifact is a published file as read back from the output directory.
type Artifact struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Content     []byte    `json:"-"`
	Checksum    string    `json:"checksum"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
}

// Service coordinates the publisher, storage, catalog and history.
type Service struct {
	pub     Publisher
	store   storage.Provider
	catalog *catalog.Catalog
	runs    RunLister
}

// NewService creates a new asset service. runs may be nil when history is
// disabled.
func NewService(pub Publisher, store storage.Provider, c *catalog.Catalog, runs RunLister) *Service {
	return &Service{pub: pub, store: store, catalog: c, runs: runs}
}

// Regenerate runs a publish pass. It returns apperr.ErrBusy when another
// pass is in flight.
func (s *Service) Regenerate(ctx context.Context, trigger publisher.Trigger) (*publisher.Result, error) {
	return s.pub.PublishAll(ctx, trigger)
}

// ReadArtifact returns the current content of a published file. Names other
// than the four generated files yield apperr.ErrUnknownArtifact; a file not
// yet generated yields apperr.ErrNotFound.
func (s *Service) ReadArtifact(_ context.Context, name string) (*Artifact, error) {
	if !sitemap.IsArtifact(name) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnknownArtifact, name)
	}
	info, err := s.store.Stat(name)
	if err != nil {
		return nil, notFound(err)
	}
	data, err := s.store.Read(name)
	if err != nil {
		return nil, notFound(err)
	}
	return &Artifact{
		Name:        name,
		ContentType: sitemap.ContentType(name),
		Content:     data,
		Checksum:    checksum.Sum(data),
		Size:        int64(len(data)),
		ModTime:     info.ModTime,
	}, nil
}

// ListArtifacts returns the generated files currently present.
func (s *Service) ListArtifacts(_ context.Context) ([]storage.ArtifactInfo, error) {
	all, err := s.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]storage.ArtifactInfo, 0, len(all))
	for _, a := range all {
		if sitemap.IsArtifact(a.Name) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Routes returns catalog entries of the given kind; "" returns all.
func (s *Service) Routes(kind string) ([]catalog.RouteEntry, error) {
	switch catalog.Kind(kind) {
	case "", catalog.KindStatic, catalog.KindTool:
		return s.catalog.Filter(catalog.Kind(kind)), nil
	default:
		return nil, fmt.Errorf("%w: route kind %q", apperr.ErrInvalidInput, kind)
	}
}

// Catalog returns the route catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Runs returns the most recent publish runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]history.Run, error) {
	if s.runs == nil {
		return []history.Run{}, nil
	}
	runs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(runs), nil
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperr.ErrNotFound
	}
	return err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
