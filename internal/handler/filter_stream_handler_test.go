package handler

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
)

type fakeStreamSrv struct {
	updates chan uint64
}

func (f *fakeStreamSrv) Visibility(criteria models.FilterCriteria) (map[string]bool, error) {
	criteria = criteria.Normalize()
	if criteria.Time == "bad" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid filter criteria")
	}
	return map[string]bool{"101": true, "102": criteria.Time != "13h"}, nil
}

func (f *fakeStreamSrv) Subscribe() (<-chan uint64, func()) {
	return f.updates, func() {}
}

type countingMetrics struct {
	mu    sync.Mutex
	total int64
}

func (m *countingMetrics) StreamClientConnected(delta int64) {
	m.mu.Lock()
	m.total += delta
	m.mu.Unlock()
}

func TestFilterStreamPushesVisibility(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeStreamSrv{updates: make(chan uint64, 1)}
	metrics := &countingMetrics{}
	router := gin.New()
	router.GET("/filters/stream", NewFilterStreamHandler(svc, metrics, nil, nil).Stream)
	server := httptest.NewServer(router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/filters/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var event dto.FilterEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, map[string]bool{"101": true, "102": true}, event.Visibility)

	require.NoError(t, conn.WriteJSON(models.FilterCriteria{Time: "13h", Transport: "All"}))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, models.FilterCriteria{Time: "13h"}, event.Criteria)
	assert.False(t, event.Visibility["102"])

	require.NoError(t, conn.WriteJSON(models.FilterCriteria{Time: "bad"}))
	event = dto.FilterEvent{}
	require.NoError(t, conn.ReadJSON(&event))
	assert.NotEmpty(t, event.Error)
	assert.Equal(t, "13h", event.Criteria.Time)

	svc.updates <- 0xbeef
	event = dto.FilterEvent{}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "beef", event.Fingerprint)
	assert.Equal(t, "13h", event.Criteria.Time)
}
