package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"lapse/internal/logging"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultEventLimit
	}

	if websocket.IsWebSocketUpgrade(r) {
		s.streamEvents(w, r, since)
		return
	}

	follow := truthy(query.Get("follow"))
	if truthy(query.Get("tail")) && since == 0 && !follow {
		evts, next := s.hub.Tail(limit)
		s.writeJSON(w, http.StatusOK, EventsResponse{Events: evts, Next: next})
		return
	}

	evts, next, err := s.hub.Fetch(r.Context(), since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, EventsResponse{Events: evts, Next: next})
}

// streamEvents pushes every event after since as one JSON text frame each.
// The read loop only exists to observe pongs and the client closing.
func (s *server) streamEvents(w http.ResponseWriter, r *http.Request, since uint64) {
	if s.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("event stream opened", logging.String("remote", r.RemoteAddr), logging.Int64("since", int64(since)))
	for {
		fetchCtx, fetchCancel := context.WithTimeout(ctx, wsPingPeriod)
		evts, next, err := s.hub.Fetch(fetchCtx, since, defaultEventLimit, true)
		fetchCancel()
		if ctx.Err() != nil {
			return
		}
		for _, evt := range evts {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				s.logger.Debug("event stream write failed", logging.Error(err))
				return
			}
		}
		since = next
		if errors.Is(err, context.DeadlineExceeded) {
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func truthy(value string) bool {
	value = strings.TrimSpace(value)
	return value == "1" || strings.EqualFold(value, "true")
}
