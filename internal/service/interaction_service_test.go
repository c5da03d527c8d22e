package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestInteractionService(cfg InteractionConfig) (*InteractionService, *stepClock) {
	clock := &stepClock{t: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)}
	svc := NewInteractionService(cfg, nil, NewMetricsService(), nil)
	svc.now = clock.now
	return svc, clock
}

func TestInteractionServiceCooldown(t *testing.T) {
	svc, clock := newTestInteractionService(InteractionConfig{})
	ctx := context.Background()

	res, err := svc.Record(ctx, "tablet-1", dto.RecordInteractionRequest{Object: "101", Type: "tap"})
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	clock.advance(200 * time.Millisecond)
	res, err = svc.Record(ctx, "tablet-1", dto.RecordInteractionRequest{Object: "101", Type: "tap"})
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	res, err = svc.Record(ctx, "tablet-2", dto.RecordInteractionRequest{Object: "102", Type: "tap"})
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	clock.advance(300 * time.Millisecond)
	res, err = svc.Record(ctx, "tablet-1", dto.RecordInteractionRequest{Object: "101", Type: "drag"})
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	assert.Equal(t, 3, svc.Report(0).TotalEntries)
}

func TestInteractionServiceValidation(t *testing.T) {
	svc, _ := newTestInteractionService(InteractionConfig{})
	_, err := svc.Record(context.Background(), "c", dto.RecordInteractionRequest{Object: " ", Type: "tap"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestInteractionServiceReport(t *testing.T) {
	svc, clock := newTestInteractionService(InteractionConfig{Recent: 2, Retention: 4})
	ctx := context.Background()
	events := []dto.RecordInteractionRequest{
		{Object: "101", Type: "tap"},
		{Object: "102", Type: "tap"},
		{Object: "101", Type: "drag"},
		{Object: "101", Type: "tap"},
		{Object: "filter", Type: "select", Details: "13h"},
	}
	for _, e := range events {
		clock.advance(time.Second)
		_, err := svc.Record(ctx, "tablet", e)
		require.NoError(t, err)
	}

	report := svc.Report(0)
	assert.Equal(t, 4, report.TotalEntries)
	require.Len(t, report.Recent, 2)
	assert.Equal(t, "filter", report.Recent[0].Object)
	assert.Equal(t, "101", report.Recent[1].Object)
	assert.Equal(t, []models.CountEntry{{Key: "101", Count: 2}, {Key: "102", Count: 1}, {Key: "filter", Count: 1}}, report.TopObjects)
	assert.Equal(t, []models.CountEntry{{Key: "tap", Count: 2}, {Key: "drag", Count: 1}, {Key: "select", Count: 1}}, report.CommonTypes)

	assert.Len(t, svc.Report(3).Recent, 3)
}
