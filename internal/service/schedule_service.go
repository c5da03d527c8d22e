package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	"github.com/noah-isme/sma-room-schedule/internal/schedule"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
	"github.com/noah-isme/sma-room-schedule/pkg/export"
	"github.com/noah-isme/sma-room-schedule/pkg/jobs"
)

// JobTypeReload is the queue job type that rebuilds the index.
const JobTypeReload = "schedule.reload"

type sourceResolver interface {
	Resolve(ctx context.Context, name string) (string, string, error)
}

type catalogLoader interface {
	Load(ctx context.Context) (map[string]models.RoomCatalogEntry, error)
}

// SourceStore persists uploaded timetable sources.
type SourceStore interface {
	Create(ctx context.Context, src *models.ScheduleSource) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ScheduleConfig tunes index construction.
type ScheduleConfig struct {
	SourceName      string
	Layout          schedule.Layout
	DefaultCapacity int
	CacheTTL        time.Duration
}

type loadedIndex struct {
	index     *schedule.Index
	namespace uint64
	source    string
	provider string
	loadedAt time.Time
}

// ScheduleService owns the active schedule index and answers queries against it. The index is
// replaced wholesale on reload; readers always see either the old or the new index.
type ScheduleService struct {
	sources   sourceResolver
	catalog   catalogLoader
	store     SourceStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleConfig

	current atomic.Pointer[loadedIndex]
	reloads singleflight.Group
	queue   jobEnqueuer

	subsMu  sync.Mutex
	subs    map[int]chan uint64
	nextSub int
}

// NewScheduleService wires the schedule service. catalog, store, cache and metrics may be nil.
func NewScheduleService(sources sourceResolver, catalog catalogLoader, store SourceStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ScheduleConfig) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "students.csv"
	}
	return &ScheduleService{
		sources:   sources,
		catalog:   catalog,
		store:     store,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		subs:      make(map[int]chan uint64),
	}
}

// AttachQueue enables asynchronous reloads.
func (s *ScheduleService) AttachQueue(q jobEnqueuer) {
	s.queue = q
}

// snapshot returns the active index with its cache namespace. Both are zero while unloaded.
func (s *ScheduleService) snapshot() (*schedule.Index, uint64) {
	if cur := s.current.Load(); cur != nil {
		return cur.index, cur.namespace
	}
	return nil, 0
}

// Index returns the active index, nil while unloaded.
func (s *ScheduleService) Index() *schedule.Index {
	if cur := s.current.Load(); cur != nil {
		return cur.index
	}
	return nil
}

// Status reports the lifecycle state of the index.
func (s *ScheduleService) Status() dto.IndexStatus {
	cur := s.current.Load()
	if cur == nil {
		return dto.IndexStatus{State: dto.IndexStateUnloaded}
	}
	loadedAt := cur.loadedAt
	return dto.IndexStatus{
		State:       dto.IndexStateLoaded,
		Source:      cur.source,
		Provider:    cur.provider,
		Rooms:       cur.index.RoomCount(),
		RowsIndexed: cur.index.RowsIndexed(),
		RowsSkipped: cur.index.RowsSkipped(),
		Fingerprint: formatFingerprint(cur.index.Fingerprint()),
		LoadedAt:    &loadedAt,
	}
}

// Reload fetches the named source and swaps in a freshly built index. Concurrent reloads of the
// same source share one build, which is not cancelled when the first caller goes away. On failure
// the previous index stays active.
func (s *ScheduleService) Reload(ctx context.Context, req dto.ReloadRequest) (dto.ReloadResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ReloadResult{}, validationError(err, "invalid reload request")
	}
	name := strings.TrimSpace(req.Source)
	if name == "" {
		name = s.cfg.SourceName
	}

	build := context.WithoutCancel(ctx)
	v, err, shared := s.reloads.Do(name, func() (interface{}, error) {
		return s.reload(build, name, req.Reason)
	})
	if err != nil {
		return dto.ReloadResult{}, err
	}
	result := v.(dto.ReloadResult)
	if shared {
		result.Shared = true
		s.metrics.ObserveReload(ReloadOutcomeShared, 0, result)
	}
	return result, nil
}

func (s *ScheduleService) reload(ctx context.Context, name, reason string) (dto.ReloadResult, error) {
	start := time.Now()
	var (
		text     string
		provider string
		catalog  map[string]models.RoomCatalogEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		text, provider, err = s.sources.Resolve(gctx, name)
		return err
	})
	g.Go(func() error {
		if s.catalog == nil {
			return nil
		}
		entries, err := s.catalog.Load(gctx)
		if err != nil {
			s.logger.Warn("room catalog unavailable, using default capacity", zap.Error(err))
			return nil
		}
		catalog = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.ObserveReload(ReloadOutcomeFailed, time.Since(start), dto.ReloadResult{})
		s.logger.Warn("schedule reload failed, keeping previous index",
			zap.String("source", name), zap.String("reason", reason), zap.Error(err))
		if errors.Is(err, schedule.ErrSourceUnavailable) {
			return dto.ReloadResult{}, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, fmt.Sprintf("schedule source %s unavailable", name))
		}
		return dto.ReloadResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload schedule")
	}

	idx := schedule.Load(text, schedule.Options{
		Layout:          s.cfg.Layout,
		DefaultCapacity: s.cfg.DefaultCapacity,
		Catalog:         catalog,
		Logger:          s.logger,
	})
	next := &loadedIndex{
		index:     idx,
		namespace: s.cacheNamespace(idx.Fingerprint(), catalog),
		source:    name,
		provider:  provider,
		loadedAt:  time.Now().UTC(),
	}
	prev := s.current.Swap(next)

	changed := prev == nil || prev.index.Fingerprint() != idx.Fingerprint()
	if prev != nil {
		_ = s.cache.Invalidate(ctx, s.cache.Pattern(prev.namespace))
	}

	duration := time.Since(start)
	result := dto.ReloadResult{
		Source:       name,
		Provider:     provider,
		Rooms:        idx.RoomCount(),
		RowsIndexed:  idx.RowsIndexed(),
		RowsSkipped:  idx.RowsSkipped(),
		Fingerprint:  formatFingerprint(idx.Fingerprint()),
		Changed:      changed,
		Duration:     duration,
		DurationMs:   duration.Milliseconds(),
		LoadedAt:     next.loadedAt,
		CatalogRooms: len(catalog),
	}
	s.metrics.ObserveReload(ReloadOutcomeSuccess, duration, result)
	s.logger.Info("schedule index swapped",
		zap.String("source", name),
		zap.String("provider", provider),
		zap.String("reason", reason),
		zap.Bool("changed", changed),
		zap.Duration("took", duration),
	)
	s.broadcast(idx.Fingerprint())
	return result, nil
}

// cacheNamespace hashes everything a cached payload depends on: the source text, the layout, the
// default capacity and the room catalog.
func (s *ScheduleService) cacheNamespace(fingerprint uint64, catalog map[string]models.RoomCatalogEntry) uint64 {
	d := xxhash.New()
	layout := s.cfg.Layout
	fmt.Fprintf(d, "%x|%d|%d|%d|%d", fingerprint, layout.BaseHour, layout.Slots, layout.MinFields, s.cfg.DefaultCapacity)
	names := lo.Keys(catalog)
	sort.Strings(names)
	for _, name := range names {
		entry := catalog[name]
		fmt.Fprintf(d, "|%q:%q:%d", name, entry.Label, entry.Capacity)
	}
	return d.Sum64()
}

// EnqueueReload schedules a reload on the background queue.
func (s *ScheduleService) EnqueueReload(req dto.ReloadRequest) (dto.ReloadJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ReloadJob{}, validationError(err, "invalid reload request")
	}
	if s.queue == nil {
		return dto.ReloadJob{}, appErrors.Clone(appErrors.ErrInternal, "reload queue not configured")
	}

	payload := map[string]interface{}{}
	if err := mapstructure.Decode(req, &payload); err != nil {
		return dto.ReloadJob{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode reload job")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeReload, Payload: payload, Enqueued: time.Now().UTC()}
	if err := s.queue.Enqueue(job); err != nil {
		return dto.ReloadJob{}, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "reload queue unavailable")
	}

	source := req.Source
	if source == "" {
		source = s.cfg.SourceName
	}
	return dto.ReloadJob{JobID: job.ID, Source: source, EnqueuedAt: job.Enqueued}, nil
}

// HandleReloadJob is the queue handler for JobTypeReload.
func (s *ScheduleService) HandleReloadJob(ctx context.Context, job jobs.Job) error {
	var req dto.ReloadRequest
	if err := mapstructure.Decode(job.Payload, &req); err != nil {
		return fmt.Errorf("decode reload payload: %w", err)
	}
	_, err := s.Reload(ctx, req)
	return err
}

// RunPeriodicReload enqueues a reload every interval until ctx is done.
func (s *ScheduleService) RunPeriodicReload(ctx context.Context, interval time.Duration) {
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
			if _, err := s.EnqueueReload(dto.ReloadRequest{Reason: "periodic"}); err != nil {
				s.logger.Warn("periodic reload not enqueued", zap.Error(err))
			}
		}
	}
}

// Subscribe returns a channel receiving the fingerprint of every newly swapped index. Slow
// subscribers only see the latest value.
func (s *ScheduleService) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *ScheduleService) broadcast(fingerprint uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- fingerprint:
		default:
		}
	}
}

// Options lists the values offered by the filter dropdowns.
func (s *ScheduleService) Options() models.FilterOptions {
	return s.Index().Options()
}

// NormalizeCriteria validates criteria and folds "All" into the wildcard.
func (s *ScheduleService) NormalizeCriteria(criteria models.FilterCriteria) (models.FilterCriteria, error) {
	criteria = criteria.Normalize()
	if err := s.validator.Struct(criteria); err != nil {
		return models.FilterCriteria{}, validationError(err, "invalid filter criteria")
	}
	return criteria, nil
}

// Rooms lists every room with its visibility under criteria. The boolean reports a cache hit.
func (s *ScheduleService) Rooms(ctx context.Context, criteria models.FilterCriteria) ([]dto.RoomVisibility, bool, error) {
	criteria, err := s.NormalizeCriteria(criteria)
	if err != nil {
		return nil, false, err
	}
	idx, ns := s.snapshot()
	key := s.cache.Key(ns, "visibility", criteria.Key())
	rooms, hit := Remember(ctx, s.cache, key, func() []dto.RoomVisibility {
		visibility := idx.Visibility(criteria)
		out := make([]dto.RoomVisibility, 0, len(visibility))
		for _, name := range idx.Rooms() {
			out = append(out, dto.RoomVisibility{Room: name, Visible: visibility[name]})
		}
		return out
	})
	return rooms, hit, nil
}

// Visibility maps each room to whether criteria show it.
func (s *ScheduleService) Visibility(criteria models.FilterCriteria) (map[string]bool, error) {
	criteria, err := s.NormalizeCriteria(criteria)
	if err != nil {
		return nil, err
	}
	return s.Index().Visibility(criteria), nil
}

// Room returns a copy of the room schedule.
func (s *ScheduleService) Room(name string) (models.RoomSchedule, error) {
	room, ok := s.Index().RoomInfo(name)
	if !ok {
		return models.RoomSchedule{}, roomNotFound(name)
	}
	return room, nil
}

// Summary renders the info-panel view of a room.
func (s *ScheduleService) Summary(ctx context.Context, name string) (models.RoomSummary, bool, error) {
	idx, ns := s.snapshot()
	if _, ok := idx.RoomInfo(name); !ok {
		return models.RoomSummary{}, false, roomNotFound(name)
	}
	key := s.cache.Key(ns, "summary", strings.TrimSpace(name))
	summary, hit := Remember(ctx, s.cache, key, func() models.RoomSummary {
		out, _ := idx.Summary(name)
		return out
	})
	return summary, hit, nil
}

// FilteredStudents lists the attendance of a room that matches criteria.
func (s *ScheduleService) FilteredStudents(name string, criteria models.FilterCriteria) (dto.FilteredStudents, error) {
	criteria, err := s.NormalizeCriteria(criteria)
	if err != nil {
		return dto.FilteredStudents{}, err
	}
	idx := s.Index()
	room, ok := idx.RoomInfo(name)
	if !ok {
		return dto.FilteredStudents{}, roomNotFound(name)
	}
	return dto.FilteredStudents{
		Room:     room.Name,
		Criteria: criteria,
		Students: idx.FilteredStudents(name, criteria),
	}, nil
}

// Stats returns both tallies of a room. Unknown rooms yield empty maps.
func (s *ScheduleService) Stats(name string) dto.RoomStats {
	idx := s.Index()
	return dto.RoomStats{
		Room:            strings.TrimSpace(name),
		Specializations: idx.StudentsBySpecialization(name),
		Transports:      idx.StudentsByTransport(name),
	}
}

// StudentSchedule lists the hours a student attends. Unknown students yield an empty list.
func (s *ScheduleService) StudentSchedule(name string) dto.StudentSchedule {
	return dto.StudentSchedule{Student: strings.TrimSpace(name), Hours: s.Index().StudentSchedule(name)}
}

// Export renders every room and hour with its head count and capacity.
func (s *ScheduleService) Export(ctx context.Context, format string) ([]byte, export.Format, error) {
	rendered, err := s.ExportSnapshot(ctx, format)
	if err != nil {
		return nil, "", err
	}
	return rendered.Body, rendered.Format, nil
}

// ExportSnapshot is Export plus the fingerprint of the index that was rendered.
func (s *ScheduleService) ExportSnapshot(ctx context.Context, format string) (dto.RenderedExport, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return dto.RenderedExport{}, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, err.Error())
	}
	idx := s.Index()
	if !idx.Loaded() {
		return dto.RenderedExport{}, appErrors.ErrNotLoaded
	}

	data := export.Dataset{
		Title:   "Room occupancy",
		Headers: []string{"room", "label", "hour", "students", "capacity"},
	}
	for _, name := range idx.Rooms() {
		if err := ctx.Err(); err != nil {
			return dto.RenderedExport{}, err
		}
		summary, _ := idx.Summary(name)
		for _, h := range summary.Hours {
			data.Rows = append(data.Rows, []string{
				summary.Room, summary.Label, h.Hour, strconv.Itoa(h.Students), strconv.Itoa(summary.Capacity),
			})
		}
	}

	body, err := export.RendererFor(f).Render(data)
	if err != nil {
		return dto.RenderedExport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return dto.RenderedExport{Body: body, Format: f, Fingerprint: formatFingerprint(idx.Fingerprint())}, nil
}

// Upload stores a timetable CSV in the database source and optionally reloads from it.
func (s *ScheduleService) Upload(ctx context.Context, req dto.UploadSourceRequest, actor string) (dto.UploadSourceResult, error) {
	if s.store == nil {
		return dto.UploadSourceResult{}, appErrors.Clone(appErrors.ErrSourceUnavailable, "database source disabled")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return dto.UploadSourceResult{}, validationError(err, "invalid source upload")
	}

	src := &models.ScheduleSource{Name: req.Name, Content: req.Content, UploadedBy: actor}
	if err := s.store.Create(ctx, src); err != nil {
		return dto.UploadSourceResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule source")
	}
	s.logger.Info("schedule source uploaded", zap.String("source", src.Name), zap.String("id", src.ID), zap.String("actor", actor), zap.Int("bytes", len(req.Content)))

	result := dto.UploadSourceResult{Source: *src}
	if req.Reload {
		reload, err := s.Reload(ctx, dto.ReloadRequest{Source: src.Name, Reason: "upload"})
		if err != nil {
			return result, err
		}
		result.Reload = &reload
	}
	return result, nil
}

func roomNotFound(name string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("room %q not found", strings.TrimSpace(name)))
}

func formatFingerprint(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}
