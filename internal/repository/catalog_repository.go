package repository

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-room-schedule/internal/models"
)

// CatalogRepository reads per-room metadata from a YAML file:
//
//	rooms:
//	  - name: "101"
//	    label: Physics lab
//	    capacity: 32
type CatalogRepository struct {
	path string
}

type catalogFile struct {
	Rooms []models.RoomCatalogEntry `yaml:"rooms"`
}

// NewCatalogRepository constructs a catalog reader. An empty path disables the catalog.
func NewCatalogRepository(path string) *CatalogRepository {
	return &CatalogRepository{path: path}
}

// Load returns catalog entries keyed by room name. A missing file yields an empty catalog.
func (r *CatalogRepository) Load(ctx context.Context) (map[string]models.RoomCatalogEntry, error) {
	entries := make(map[string]models.RoomCatalogEntry)
	if r == nil || r.path == "" {
		return entries, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("read room catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode room catalog: %w", err)
	}
	for _, entry := range file.Rooms {
		entry.Name = strings.TrimSpace(entry.Name)
		if entry.Name == "" {
			continue
		}
		entries[entry.Name] = entry
	}
	return entries, nil
}
