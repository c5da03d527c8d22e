package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/schedule"
)

// FileSourceRepository reads timetable CSVs from an ordered list of candidate directories.
type FileSourceRepository struct {
	dirs   []string
	logger *zap.Logger
}

// NewFileSourceRepository constructs a file-backed source provider.
func NewFileSourceRepository(dirs []string, logger *zap.Logger) *FileSourceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSourceRepository{dirs: dirs, logger: logger}
}

// Kind names the provider in logs.
func (r *FileSourceRepository) Kind() string { return "file" }

// Fetch returns the contents of the first readable candidate. name must be a relative path that
// stays inside the candidate directories.
func (r *FileSourceRepository) Fetch(ctx context.Context, name string) (string, error) {
	clean := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(clean) {
		r.logger.Warn("schedule source name rejected", zap.String("name", name))
		return "", fmt.Errorf("%w: invalid source name %q", schedule.ErrSourceUnavailable, name)
	}
	for _, path := range r.candidates(clean) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		r.logger.Debug("trying schedule source", zap.String("path", path))
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				r.logger.Warn("schedule source unreadable", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		r.logger.Info("schedule source loaded", zap.String("path", path), zap.Int("bytes", len(data)))
		return string(data), nil
	}
	return "", fmt.Errorf("%s not found in %d locations: %w", name, len(r.dirs), schedule.ErrSourceUnavailable)
}

func (r *FileSourceRepository) candidates(name string) []string {
	paths := make([]string, 0, len(r.dirs))
	for _, dir := range r.dirs {
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths
}
