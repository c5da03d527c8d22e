package dto

import (
	"os"
	"time"

	"github.com/noah-isme/sma-room-schedule/pkg/export"
)

// RenderedExport is an export body with the fingerprint of the index it was rendered from.
type RenderedExport struct {
	Body        []byte
	Format      export.Format
	Fingerprint string
}

// ExportLink describes a published export snapshot.
type ExportLink struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	Fingerprint string    `json:"fingerprint"`
	Bytes       int       `json:"bytes"`
	URL         string    `json:"url"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExportDownload is an opened snapshot ready to stream. The caller closes File.
type ExportDownload struct {
	File        *os.File
	Size        int64
	Filename    string
	ContentType string
}
