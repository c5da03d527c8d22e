package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
)

const (
	defaultInteractionCooldown  = 500 * time.Millisecond
	defaultInteractionRetention = 1000
	defaultInteractionRecent    = 20
	topObjectsLimit             = 10
)

// InteractionConfig bounds the interaction log.
type InteractionConfig struct {
	Cooldown  time.Duration
	Retention int
	Recent    int
}

// InteractionService keeps an in-memory log of user interactions with rendered objects. Events
// from the same client arriving within the cooldown are dropped.
type InteractionService struct {
	mu        sync.Mutex
	entries   []models.Interaction
	lastSeen  map[string]time.Time
	cfg       InteractionConfig
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewInteractionService constructs an interaction log.
func NewInteractionService(cfg InteractionConfig, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *InteractionService {
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	} else if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultInteractionCooldown
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultInteractionRetention
	}
	if cfg.Recent <= 0 {
		cfg.Recent = defaultInteractionRecent
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractionService{
		lastSeen:  make(map[string]time.Time),
		cfg:       cfg,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Record appends an interaction unless the client logged one within the cooldown.
func (s *InteractionService) Record(ctx context.Context, client string, req dto.RecordInteractionRequest) (dto.RecordInteractionResult, error) {
	req.Object = strings.TrimSpace(req.Object)
	req.Type = strings.TrimSpace(req.Type)
	if err := s.validator.Struct(req); err != nil {
		return dto.RecordInteractionResult{}, validationError(err, "invalid interaction payload")
	}

	now := s.now().UTC()
	s.mu.Lock()
	last, seen := s.lastSeen[client]
	if seen && now.Sub(last) < s.cfg.Cooldown {
		s.mu.Unlock()
		s.metrics.ObserveInteraction(req.Type, false)
		return dto.RecordInteractionResult{Accepted: false}, nil
	}
	s.lastSeen[client] = now
	s.entries = append(s.entries, models.Interaction{Object: req.Object, Type: req.Type, Details: req.Details, Timestamp: now})
	if overflow := len(s.entries) - s.cfg.Retention; overflow > 0 {
		s.entries = append([]models.Interaction(nil), s.entries[overflow:]...)
	}
	s.pruneClients(now)
	s.mu.Unlock()

	s.metrics.ObserveInteraction(req.Type, true)
	s.logger.Debug("interaction recorded", zap.String("object", req.Object), zap.String("type", req.Type))
	return dto.RecordInteractionResult{Accepted: true}, nil
}

// Report returns the newest entries first together with object and type counts.
func (s *InteractionService) Report(limit int) dto.InteractionReport {
	if limit <= 0 || limit > s.cfg.Retention {
		limit = s.cfg.Recent
	}

	s.mu.Lock()
	entries := append([]models.Interaction(nil), s.entries...)
	s.mu.Unlock()

	recent := lo.Reverse(append([]models.Interaction(nil), entries...))
	if len(recent) > limit {
		recent = recent[:limit]
	}

	top := rankCounts(lo.CountValuesBy(entries, func(i models.Interaction) string { return i.Object }))
	if len(top) > topObjectsLimit {
		top = top[:topObjectsLimit]
	}

	return dto.InteractionReport{
		Recent:       recent,
		TopObjects:   top,
		CommonTypes:  rankCounts(lo.CountValuesBy(entries, func(i models.Interaction) string { return i.Type })),
		TotalEntries: len(entries),
	}
}

// pruneClients forgets clients whose cooldown elapsed once the table grows large. Callers hold mu.
func (s *InteractionService) pruneClients(now time.Time) {
	if len(s.lastSeen) < 1024 {
		return
	}
	for client, last := range s.lastSeen {
		if now.Sub(last) >= s.cfg.Cooldown {
			delete(s.lastSeen, client)
		}
	}
}

// rankCounts orders counts descending, ties broken by key.
func rankCounts(counts map[string]int) []models.CountEntry {
	out := lo.MapToSlice(counts, func(key string, count int) models.CountEntry {
		return models.CountEntry{Key: key, Count: count}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
