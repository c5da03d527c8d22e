package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	"github.com/noah-isme/sma-room-schedule/internal/schedule"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
	"github.com/noah-isme/sma-room-schedule/pkg/export"
	"github.com/noah-isme/sma-room-schedule/pkg/jobs"
)

const testCSV = "Name,Class,13h,14h,15h,16h,17h,Email,Phone,Transport,Age,Group,Specialization\n" +
	"Alice,,101,101,,,,x,x,Bus,x,x,CS\n" +
	"Bob,,102,101,101,,,x,x,Walk,x,x,Math\n" +
	"Short,row\n"

type fakeProvider struct {
	kind  string
	text  string
	err   error
	calls int32
	delay time.Duration
}

func (f *fakeProvider) Kind() string { return f.kind }

func (f *fakeProvider) Fetch(ctx context.Context, name string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeCatalog struct {
	entries map[string]models.RoomCatalogEntry
	err     error
}

func (f *fakeCatalog) Load(ctx context.Context) (map[string]models.RoomCatalogEntry, error) {
	return f.entries, f.err
}

type fakeStore struct {
	created []*models.ScheduleSource
	err     error
}

func (f *fakeStore) Create(ctx context.Context, src *models.ScheduleSource) error {
	if f.err != nil {
		return f.err
	}
	src.ID = "src-1"
	f.created = append(f.created, src)
	return nil
}

type memoryCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}

type fakeQueue struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func newTestScheduleService(provider *fakeProvider, opts ...func(*ScheduleService)) *ScheduleService {
	svc := NewScheduleService(NewChainSource(nil, provider), nil, nil, nil, NewMetricsService(), nil, nil, ScheduleConfig{})
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func TestScheduleServiceUnloadedDefaults(t *testing.T) {
	svc := newTestScheduleService(&fakeProvider{kind: "file"})

	assert.Equal(t, dto.IndexStateUnloaded, svc.Status().State)
	assert.Nil(t, svc.Index())
	assert.Equal(t, []string{}, svc.StudentSchedule("Alice").Hours)
	assert.Empty(t, svc.Stats("101").Transports)
	assert.Equal(t, []string{"13h", "14h", "15h", "16h", "17h"}, svc.Options().Hours)

	_, err := svc.Room("101")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = svc.Export(context.Background(), "csv")
	assert.True(t, errors.Is(err, appErrors.ErrNotLoaded))
}

func TestScheduleServiceReload(t *testing.T) {
	provider := &fakeProvider{kind: "file", text: testCSV}
	svc := newTestScheduleService(provider)

	result, err := svc.Reload(context.Background(), dto.ReloadRequest{Reason: "test"})
	require.NoError(t, err)
	assert.Equal(t, "students.csv", result.Source)
	assert.Equal(t, "file", result.Provider)
	assert.Equal(t, 2, result.Rooms)
	assert.Equal(t, 2, result.RowsIndexed)
	assert.Equal(t, 1, result.RowsSkipped)
	assert.True(t, result.Changed)

	status := svc.Status()
	assert.Equal(t, dto.IndexStateLoaded, status.State)
	assert.Equal(t, result.Fingerprint, status.Fingerprint)
	require.NotNil(t, status.LoadedAt)

	room, err := svc.Room("101")
	require.NoError(t, err)
	assert.Len(t, room.StudentsByHour["14h"], 2)
	assert.Equal(t, []string{"13h", "14h"}, svc.StudentSchedule("Alice").Hours)

	again, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)
	assert.False(t, again.Changed)
}

func TestScheduleServiceFailedReloadKeepsPreviousIndex(t *testing.T) {
	provider := &fakeProvider{kind: "file", text: testCSV}
	svc := newTestScheduleService(provider)
	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)
	before := svc.Index()

	provider.err = schedule.ErrSourceUnavailable
	_, err = svc.Reload(context.Background(), dto.ReloadRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSourceUnavailable))
	assert.Same(t, before, svc.Index())
	assert.Equal(t, uint64(1), svc.metrics.Snapshot().ReloadsFailed)
}

func TestScheduleServiceFailedFirstReloadStaysUnloaded(t *testing.T) {
	svc := newTestScheduleService(&fakeProvider{kind: "file", err: errors.New("disk on fire")})

	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSourceUnavailable))
	assert.Equal(t, dto.IndexStateUnloaded, svc.Status().State)
}

func TestScheduleServiceConcurrentReloadsShareBuild(t *testing.T) {
	provider := &fakeProvider{kind: "file", text: testCSV, delay: 50 * time.Millisecond}
	svc := newTestScheduleService(provider)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&provider.calls), int32(5))
	assert.Equal(t, dto.IndexStateLoaded, svc.Status().State)
}

func TestScheduleServiceCatalogOverridesCapacity(t *testing.T) {
	provider := &fakeProvider{kind: "file", text: testCSV}
	svc := newTestScheduleService(provider, func(s *ScheduleService) {
		s.catalog = &fakeCatalog{entries: map[string]models.RoomCatalogEntry{"101": {Name: "101", Label: "Lab", Capacity: 12}}}
	})

	result, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CatalogRooms)

	room, err := svc.Room("101")
	require.NoError(t, err)
	assert.Equal(t, 12, room.Capacity)
	assert.Equal(t, "Lab", room.Label)

	other, err := svc.Room("102")
	require.NoError(t, err)
	assert.Equal(t, schedule.DefaultCapacity, other.Capacity)
}

func TestScheduleServiceCatalogFailureFallsBack(t *testing.T) {
	provider := &fakeProvider{kind: "file", text: testCSV}
	svc := newTestScheduleService(provider, func(s *ScheduleService) {
		s.catalog = &fakeCatalog{err: errors.New("bad yaml")}
	})

	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)
	room, err := svc.Room("101")
	require.NoError(t, err)
	assert.Equal(t, schedule.DefaultCapacity, room.Capacity)
}

func TestScheduleServiceRoomsUsesCache(t *testing.T) {
	cacheRepo := newMemoryCache()
	provider := &fakeProvider{kind: "file", text: testCSV}
	svc := newTestScheduleService(provider, func(s *ScheduleService) {
		s.cache = NewCacheService(cacheRepo, s.metrics, time.Minute, nil, true)
	})
	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)

	criteria := models.FilterCriteria{Time: "13h", Transport: "All"}
	rooms, hit, err := svc.Rooms(context.Background(), criteria)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []dto.RoomVisibility{{Room: "101", Visible: true}, {Room: "102", Visible: true}}, rooms)

	_, hit, err = svc.Rooms(context.Background(), criteria)
	require.NoError(t, err)
	assert.True(t, hit)

	provider.text = testCSV + "Eve,,,,,,104,x,x,Car,x,x,Art\n"
	_, err = svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)
	assert.Len(t, cacheRepo.deleted, 1)

	rooms, hit, err = svc.Rooms(context.Background(), models.FilterCriteria{Specialization: "Art"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []dto.RoomVisibility{{Room: "101", Visible: false}, {Room: "102", Visible: false}, {Room: "104", Visible: true}}, rooms)
}

func TestScheduleServiceRoomsCacheKeepsSeparatorValuesApart(t *testing.T) {
	const csv = "Name,Class,13h,14h,15h,16h,17h,Email,Phone,Transport,Age,Group,Specialization\n" +
		"Ann,,101,,,,,x,x,C,x,x,\"A|B\"\n" +
		"Ben,,102,,,,,x,x,\"B|C\",x,x,A\n"
	svc := newTestScheduleService(&fakeProvider{kind: "file", text: csv}, func(s *ScheduleService) {
		s.cache = NewCacheService(newMemoryCache(), s.metrics, time.Minute, nil, true)
	})
	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)

	first := models.FilterCriteria{Specialization: "A|B", Transport: "C"}
	second := models.FilterCriteria{Specialization: "A", Transport: "B|C"}

	rooms, hit, err := svc.Rooms(context.Background(), first)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []dto.RoomVisibility{{Room: "101", Visible: true}, {Room: "102", Visible: false}}, rooms)

	rooms, hit, err = svc.Rooms(context.Background(), second)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []dto.RoomVisibility{{Room: "101", Visible: false}, {Room: "102", Visible: true}}, rooms)

	visibility, err := svc.Visibility(second)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"101": false, "102": true}, visibility)
}

func TestScheduleServiceSummaryCacheScopedByCatalog(t *testing.T) {
	shared := newMemoryCache()
	plain := newTestScheduleService(&fakeProvider{kind: "file", text: testCSV}, func(s *ScheduleService) {
		s.cache = NewCacheService(shared, s.metrics, time.Minute, nil, true)
	})
	labelled := newTestScheduleService(&fakeProvider{kind: "file", text: testCSV}, func(s *ScheduleService) {
		s.cache = NewCacheService(shared, s.metrics, time.Minute, nil, true)
		s.catalog = &fakeCatalog{entries: map[string]models.RoomCatalogEntry{"101": {Name: "101", Label: "Lab", Capacity: 12}}}
	})
	_, err := plain.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)
	_, err = labelled.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)

	summary, hit, err := plain.Summary(context.Background(), "101")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, schedule.DefaultCapacity, summary.Capacity)

	summary, hit, err = labelled.Summary(context.Background(), "101")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 12, summary.Capacity)
	assert.Equal(t, "Lab", summary.Label)
}

func TestScheduleServiceReloadSurvivesCallerCancellation(t *testing.T) {
	provider := &fakeProvider{kind: "file", text: testCSV}
	svc := newTestScheduleService(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Reload(ctx, dto.ReloadRequest{})
	require.NoError(t, err)
	assert.Equal(t, dto.IndexStateLoaded, svc.Status().State)
}

func TestScheduleServiceRejectsInvalidHour(t *testing.T) {
	svc := newTestScheduleService(&fakeProvider{kind: "file", text: testCSV})
	_, _, err := svc.Rooms(context.Background(), models.FilterCriteria{Time: "noon"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestScheduleServiceSummaryAndFilteredStudents(t *testing.T) {
	svc := newTestScheduleService(&fakeProvider{kind: "file", text: testCSV})
	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)

	summary, _, err := svc.Summary(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalStudents)
	assert.Contains(t, summary.Text, "Room: 101")

	_, _, err = svc.Summary(context.Background(), "999")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	filtered, err := svc.FilteredStudents("101", models.FilterCriteria{Transport: "Walk"})
	require.NoError(t, err)
	require.Len(t, filtered.Students, 2)
	assert.Equal(t, "Bob", filtered.Students[0].Name)

	stats := svc.Stats("101")
	assert.Equal(t, map[string]int{"Bus": 2, "Walk": 2}, stats.Transports)
}

func TestScheduleServiceExport(t *testing.T) {
	svc := newTestScheduleService(&fakeProvider{kind: "file", text: testCSV})
	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)

	body, format, err := svc.Export(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, format)
	assert.Equal(t, "room,label,hour,students,capacity\n101,,13h,1,30\n101,,14h,2,30\n101,,15h,1,30\n102,,13h,1,30\n", string(body))

	_, _, err = svc.Export(context.Background(), "docx")
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedFormat))

	rendered, err := svc.ExportSnapshot(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, body, rendered.Body)
	assert.Equal(t, svc.Status().Fingerprint, rendered.Fingerprint)
}

func TestScheduleServiceEnqueueAndHandleReload(t *testing.T) {
	provider := &fakeProvider{kind: "file", text: testCSV}
	svc := newTestScheduleService(provider)

	_, err := svc.EnqueueReload(dto.ReloadRequest{})
	require.Error(t, err)

	queue := &fakeQueue{}
	svc.AttachQueue(queue)
	ack, err := svc.EnqueueReload(dto.ReloadRequest{Source: "students.csv", Reason: "manual"})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, ack.JobID, queue.jobs[0].ID)
	assert.Equal(t, JobTypeReload, queue.jobs[0].Type)
	assert.Equal(t, "manual", queue.jobs[0].Payload["reason"])

	require.NoError(t, svc.HandleReloadJob(context.Background(), queue.jobs[0]))
	assert.Equal(t, dto.IndexStateLoaded, svc.Status().State)
}

func TestScheduleServiceSubscribeReceivesSwaps(t *testing.T) {
	svc := newTestScheduleService(&fakeProvider{kind: "file", text: testCSV})
	updates, cancel := svc.Subscribe()
	defer cancel()

	_, err := svc.Reload(context.Background(), dto.ReloadRequest{})
	require.NoError(t, err)

	select {
	case fp := <-updates:
		assert.Equal(t, svc.Index().Fingerprint(), fp)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestScheduleServiceUpload(t *testing.T) {
	provider := &fakeProvider{kind: "postgres", text: testCSV}
	svc := newTestScheduleService(provider)

	_, err := svc.Upload(context.Background(), dto.UploadSourceRequest{Name: "x.csv", Content: "a"}, "ops")
	assert.True(t, errors.Is(err, appErrors.ErrSourceUnavailable))

	store := &fakeStore{}
	svc.store = store
	_, err = svc.Upload(context.Background(), dto.UploadSourceRequest{Name: " ", Content: "a"}, "ops")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	result, err := svc.Upload(context.Background(), dto.UploadSourceRequest{Name: "students.csv", Content: testCSV, Reload: true}, "ops")
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, "ops", store.created[0].UploadedBy)
	require.NotNil(t, result.Reload)
	assert.Equal(t, "postgres", result.Reload.Provider)
}

func TestChainSourceFallsThrough(t *testing.T) {
	db := &fakeProvider{kind: "postgres", err: errors.New("connection refused")}
	files := &fakeProvider{kind: "file", text: "csv"}

	text, kind, err := NewChainSource(nil, db, nil, files).Resolve(context.Background(), "students.csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", text)
	assert.Equal(t, "file", kind)

	_, _, err = NewChainSource(nil, db).Resolve(context.Background(), "students.csv")
	assert.True(t, errors.Is(err, schedule.ErrSourceUnavailable))

	_, _, err = NewChainSource(nil).Resolve(context.Background(), "students.csv")
	assert.True(t, errors.Is(err, schedule.ErrSourceUnavailable))
}
