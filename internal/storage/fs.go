package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suntyn/sitegen/internal/checksum"
)

const tmpPattern = ".sitegen-tmp-*"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the output directory
}

// NewFS creates a new FS provider rooted at the given directory. The
// directory is created on first write if it does not exist yet, but an
// existing non-directory at that path is rejected.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute output directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a name against the root and rejects any result that
// escapes it (directory traversal).
func (f *FS) safePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: empty name")
	}
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", name)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes output root: %s", name)
	}
	return abs, nil
}

// Read returns the raw bytes of a published file. A missing file yields an
// error matching os.ErrNotExist.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename. Concurrent
// readers see either the previous file or the new one, never a prefix.
func (f *FS) Write(name string, content []byte) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	// CreateTemp uses 0600; published files must be world-readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Stat returns metadata (including checksum) for a published file.
func (f *FS) Stat(name string) (ArtifactInfo, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return ArtifactInfo{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return ArtifactInfo{
		Name:     name,
		Size:     info.Size(),
		Checksum: checksum.Sum(data),
		ModTime:  info.ModTime(),
	}, nil
}

// List returns metadata for every regular file directly under the root,
// sorted by name. Leftover temp files are skipped. A missing root yields an
// empty list.
func (f *FS) List() ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []ArtifactInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".sitegen-tmp-") {
			continue
		}
		info, err := f.Stat(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
