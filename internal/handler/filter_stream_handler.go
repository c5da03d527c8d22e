package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
)

const (
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 50 * time.Second
	streamReadLimit  = 4096
)

type filterStreamService interface {
	Visibility(criteria models.FilterCriteria) (map[string]bool, error)
	Subscribe() (<-chan uint64, func())
}

type streamMetrics interface {
	StreamClientConnected(delta int64)
}

// FilterStreamHandler pushes room visibility over a websocket whenever the client changes its
// filter or the index is rebuilt.
type FilterStreamHandler struct {
	service  filterStreamService
	metrics  streamMetrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewFilterStreamHandler constructs the handler. An empty origin list accepts every origin.
func NewFilterStreamHandler(svc filterStreamService, metrics streamMetrics, allowedOrigins []string, logger *zap.Logger) *FilterStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &FilterStreamHandler{
		service: svc,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(origins) == 0 || origin == "" {
					return true
				}
				_, ok := origins[strings.TrimRight(origin, "/")]
				return ok
			},
		},
	}
}

// Stream godoc
// @Summary Live room visibility stream
// @Description Send {"time","specialization","transport"} frames; each frame and every index reload yields a visibility event.
// @Tags Rooms
// @Router /filters/stream [get]
func (h *FilterStreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("filter stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.StreamClientConnected(1)
		defer h.metrics.StreamClientConnected(-1)
	}

	updates, unsubscribe := h.service.Subscribe()
	defer unsubscribe()

	requests := make(chan models.FilterCriteria, 1)
	done := make(chan struct{})
	go h.readLoop(conn, requests, done)

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	var current models.FilterCriteria
	if !h.push(conn, current, "", &current) {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case criteria := <-requests:
			if !h.push(conn, criteria, "", &current) {
				return
			}
		case fp := <-updates:
			if !h.push(conn, current, strconv.FormatUint(fp, 16), &current) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push evaluates criteria and writes the event. Accepted criteria become the current filter.
func (h *FilterStreamHandler) push(conn *websocket.Conn, criteria models.FilterCriteria, fingerprint string, current *models.FilterCriteria) bool {
	event := dto.FilterEvent{Criteria: criteria.Normalize(), Fingerprint: fingerprint}
	visibility, err := h.service.Visibility(criteria)
	if err != nil {
		event.Error = err.Error()
		event.Criteria = *current
	} else {
		event.Visibility = visibility
		*current = event.Criteria
	}

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Debug("filter stream write failed", zap.Error(err))
		return false
	}
	return true
}

func (h *FilterStreamHandler) readLoop(conn *websocket.Conn, requests chan models.FilterCriteria, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		var criteria models.FilterCriteria
		if err := conn.ReadJSON(&criteria); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("filter stream closed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		select {
		case <-requests:
		default:
		}
		requests <- criteria
	}
}
