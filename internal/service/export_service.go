package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
	"github.com/noah-isme/sma-room-schedule/pkg/export"
	"github.com/noah-isme/sma-room-schedule/pkg/storage"
)

type exportSource interface {
	ExportSnapshot(ctx context.Context, format string) (dto.RenderedExport, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, int64, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type linkSigner interface {
	Sign(id, relPath string) (string, time.Time, error)
	Verify(token string, allowExpired bool) (storage.Link, error)
	TTL() time.Duration
}

// ExportConfig tunes export publishing.
type ExportConfig struct {
	APIPrefix string
}

// ExportService renders the room export once, stores it and hands out signed download links,
// so kiosks can fetch the same snapshot without re-rendering it.
type ExportService struct {
	source  exportSource
	storage fileStorage
	signer  linkSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source exportSource, store fileStorage, signer linkSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{source: source, storage: store, signer: signer, logger: logger, cfg: cfg, now: time.Now}
}

// Publish renders the export in format, stores it under the index fingerprint and signs a link.
func (s *ExportService) Publish(ctx context.Context, format string) (dto.ExportLink, error) {
	rendered, err := s.source.ExportSnapshot(ctx, format)
	if err != nil {
		return dto.ExportLink{}, err
	}
	body, f, fingerprint := rendered.Body, rendered.Format, rendered.Fingerprint
	if fingerprint == "" {
		fingerprint = "unloaded"
	}

	id := uuid.NewString()
	filename := fmt.Sprintf("rooms-%s.%s", s.now().UTC().Format("20060102_150405"), f)
	relPath, err := s.storage.Save(path.Join(fingerprint, id+"-"+filename), body)
	if err != nil {
		return dto.ExportLink{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Sign(id, relPath)
	if err != nil {
		return dto.ExportLink{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.logger.Info("export published",
		zap.String("id", id),
		zap.String("format", string(f)),
		zap.String("fingerprint", fingerprint),
		zap.Int("bytes", len(body)),
	)
	return dto.ExportLink{
		ID:          id,
		Format:      string(f),
		Filename:    filename,
		Fingerprint: fingerprint,
		Bytes:       len(body),
		URL:         fmt.Sprintf("%s/exports/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Open verifies a download token and opens the stored snapshot.
func (s *ExportService) Open(token string) (dto.ExportDownload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return dto.ExportDownload{}, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	link, err := s.signer.Verify(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return dto.ExportDownload{}, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return dto.ExportDownload{}, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}

	file, size, err := s.storage.Open(link.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dto.ExportDownload{}, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return dto.ExportDownload{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}

	name := strings.TrimPrefix(path.Base(link.Path), link.ID+"-")
	f, _ := export.ParseFormat(strings.TrimPrefix(path.Ext(name), "."))
	return dto.ExportDownload{File: file, Size: size, Filename: name, ContentType: f.ContentType()}, nil
}

// Cleanup removes snapshots whose links have expired.
func (s *ExportService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupOlderThan(s.signer.TTL())
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

// RunCleanup calls Cleanup every interval until ctx is done. A non-positive interval disables it.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(); err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
