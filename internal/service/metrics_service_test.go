package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
)

func TestMetricsServiceExposesScheduleCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/rooms", http.StatusOK, 10*time.Millisecond)
	m.ObserveReload(ReloadOutcomeSuccess, 20*time.Millisecond, dto.ReloadResult{Rooms: 3, RowsIndexed: 10, RowsSkipped: 1})
	m.ObserveReload(ReloadOutcomeFailed, time.Millisecond, dto.ReloadResult{})
	m.ObserveInteraction("tap", true)
	m.StreamClientConnected(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `schedule_reloads_total{outcome="success"} 1`)
	assert.Contains(t, body, "schedule_index_rooms 3")
	assert.Contains(t, body, `schedule_index_rows{state="skipped"} 1`)
	assert.Contains(t, body, `interactions_total{accepted="true",type="tap"} 1`)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.Equal(t, uint64(1), snapshot.ReloadsSucceeded)
	assert.Equal(t, uint64(1), snapshot.ReloadsFailed)
	assert.Equal(t, int64(1), snapshot.StreamClients)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveReload(ReloadOutcomeSuccess, time.Second, dto.ReloadResult{})
	m.RecordCacheOperation(true, time.Millisecond)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
