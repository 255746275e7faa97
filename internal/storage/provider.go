// Package storage defines the output-directory abstraction the generated
// artifacts are published to and served from.
package storage

import "time"

// ArtifactInfo describes one file in the output directory.
type ArtifactInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Checksum string    `json:"checksum"`
	ModTime  time.Time `json:"mod_time"`
}

// Provider is the interface for output-directory file operations.
type Provider interface {
	// Read returns the raw bytes of the file at name (relative to the root).
	Read(name string) ([]byte, error)
	// Write atomically replaces the file at name (relative to the root).
	Write(name string, content []byte) error
	// Stat returns metadata for the file at name.
	Stat(name string) (ArtifactInfo, error)
	// List returns metadata for every regular file directly under the root.
	List() ([]ArtifactInfo, error)
	// Root returns the absolute output directory.
	Root() string
}
