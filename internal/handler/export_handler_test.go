package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
)

type fakeExportPublisher struct {
	format string
	path   string
	err    error
}

func (f *fakeExportPublisher) Publish(_ context.Context, format string) (dto.ExportLink, error) {
	f.format = format
	if f.err != nil {
		return dto.ExportLink{}, f.err
	}
	return dto.ExportLink{ID: "snap", Format: format, URL: "/api/v1/exports/download?token=t"}, nil
}

func (f *fakeExportPublisher) Open(token string) (dto.ExportDownload, error) {
	if token != "good" {
		return dto.ExportDownload{}, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := os.Open(f.path)
	if err != nil {
		return dto.ExportDownload{}, err
	}
	return dto.ExportDownload{File: file, Size: 9, Filename: "rooms.csv", ContentType: "text/csv"}, nil
}

func TestExportHandlerPublish(t *testing.T) {
	svc := &fakeExportPublisher{}
	h := NewExportHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/api/v1/rooms/exports?format=pdf", nil)
	h.Publish(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pdf", svc.format)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, string(env.Data), `"id":"snap"`)

	svc.err = appErrors.ErrNotLoaded
	c, rec = newTestContext(http.MethodPost, "/api/v1/rooms/exports", nil)
	h.Publish(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "csv", svc.format)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.csv")
	require.NoError(t, os.WriteFile(path, []byte("room\n101\n"), 0o600))
	h := NewExportHandler(&fakeExportPublisher{path: path})

	c, rec := newTestContext(http.MethodGet, "/api/v1/exports/download?token=good", nil)
	h.Download(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "room\n101\n", rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="rooms.csv"`)

	c, rec = newTestContext(http.MethodGet, "/api/v1/exports/download?token=bad", nil)
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
