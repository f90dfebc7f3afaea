package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/absensi/internal/observability"
)

// Store writes request-scoped image files into a local cache directory.
// Every staged file gets a fresh uuid-derived name, so concurrent requests
// never contend on paths.
type Store struct {
	dir string
}

// NewStore ensures the cache directory exists and returns a store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache directory path.
func (s *Store) Dir() string { return s.dir }

// ModeExt maps a declared input mode to a file extension. The extension is
// never sniffed from content; undecodable bytes surface later as a
// recognition failure, not a staging one.
func ModeExt(mode string) string {
	switch mode {
	case "image":
		return ".jpg"
	case "video":
		return ".mp4"
	default:
		return ".bin"
	}
}

// Stage writes data under a freshly generated name and returns the path.
// A write failure here means the cache directory is unusable and the
// request cannot proceed.
func (s *Store) Stage(data []byte, mode string) (string, error) {
	name := uuid.NewString() + ModeExt(mode)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("storage unavailable: stage %s: %w", name, err)
	}
	observability.StagedFiles.Inc()
	return path, nil
}

// Release deletes a staged file. A missing file is not an error, so Release
// is safe to call more than once for the same path.
func (s *Store) Release(path string) {
	if path == "" {
		return
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		observability.StagedFiles.Dec()
	case os.IsNotExist(err):
	default:
		slog.Warn("release staged file", "path", path, "error", err)
	}
}

// Sweep removes staged files older than maxAge. It catches files orphaned
// by a crash between Stage and the deferred Release.
func (s *Store) Sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("sweep cache dir", "dir", s.dir, "error", err)
		return
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		slog.Info("swept orphaned staged files", "dir", s.dir, "removed", removed)
	}
}
