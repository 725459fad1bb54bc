// Package storage manages the flat, publicly served upload directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"video-qa-go/internal/types"
)

const (
	stagingPrefix  = ".incoming-"
	stagingPattern = stagingPrefix + "*"
)

// IsStaging reports whether name is a temporary file of an upload that has
// not been persisted yet.
func IsStaging(name string) bool {
	return strings.HasPrefix(filepath.Base(name), stagingPrefix)
}

// Dir is the upload directory. Every artifact lives directly inside it.
type Dir struct {
	root   string
	prefix string
}

// Open creates root if needed. prefix is the URL path root is served under.
func Open(root, prefix string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Dir{root: root, prefix: strings.TrimRight(prefix, "/")}, nil
}

func (d *Dir) Root() string { return d.root }

// Stage copies r into a temporary file inside the upload directory so that
// persisting it later is a same-filesystem rename.
func (d *Dir) Stage(originalName string, r io.Reader) (types.UploadedMedia, error) {
	f, err := os.CreateTemp(d.root, stagingPattern)
	if err != nil {
		return types.UploadedMedia{}, fmt.Errorf("create staging file: %w", err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(f.Name())
		return types.UploadedMedia{}, fmt.Errorf("write staging file: %w", err)
	}
	return types.UploadedMedia{OriginalName: originalName, TempPath: f.Name(), Size: n}, nil
}

// Discard removes a staged file that never made it into the pipeline.
func (d *Dir) Discard(m types.UploadedMedia) {
	if m.TempPath != "" {
		_ = os.Remove(m.TempPath)
	}
}

// Persist moves a staged upload to its final name.
func (d *Dir) Persist(m types.UploadedMedia, name string) (types.StoredArtifact, error) {
	art := d.Artifact(types.ArtifactVideo, name)
	if err := os.Rename(m.TempPath, art.Path); err != nil {
		return types.StoredArtifact{}, fmt.Errorf("rename upload: %w", err)
	}
	return art, nil
}

// Artifact describes name inside the directory without touching disk.
func (d *Dir) Artifact(kind types.ArtifactKind, name string) types.StoredArtifact {
	name = filepath.Base(name)
	return types.StoredArtifact{
		Kind: kind,
		Name: name,
		Path: filepath.Join(d.root, name),
		URL:  d.prefix + "/" + url.PathEscape(name),
	}
}

// Exists reports whether the artifact is on disk.
func (d *Dir) Exists(a types.StoredArtifact) bool {
	_, err := os.Stat(a.Path)
	return err == nil
}

// Remove deletes an artifact. Missing files are not an error.
func (d *Dir) Remove(a types.StoredArtifact) error {
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", a.Name, err)
	}
	return nil
}
