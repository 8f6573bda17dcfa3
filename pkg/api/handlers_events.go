package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
)

// EventSnapshot is the first frame on every event stream.
const EventSnapshot = "snapshot"

const eventWriteTimeout = 5 * time.Second

// handleEvents upgrades to a websocket and streams every message published
// under canvas.<id>.*, starting with a full snapshot. Client frames are
// ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "event stream is not enabled")
		return
	}
	c, err := s.manager.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, "events", err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		// Accept has already written the error response.
		s.logger.Debug("websocket accept failed", logging.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	sub, err := s.bus.Subscribe(ctx, pubsub.CanvasTopics(c.ID()))
	if err != nil {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer sub.Unsubscribe()

	if s.metrics != nil {
		s.metrics.WebsocketOpened()
		defer s.metrics.WebsocketClosed()
	}
	logger := s.logger.With(logging.Canvas(c.ID()))
	logger.Debug("event stream opened")

	first := pubsub.Message{
		Topic:  pubsub.GraphTopic(c.ID()),
		Type:   EventSnapshot,
		Canvas: c.ID(),
		Time:   time.Now(),
		Data:   c.Snapshot(),
	}
	if err := writeEvent(ctx, conn, first); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("event stream closed")
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := writeEvent(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Debug("event write failed", logging.Error(err))
				}
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, msg pubsub.Message) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

// originPatterns converts the CORS allow list to websocket host patterns.
func (s *Server) originPatterns() []string {
	patterns := make([]string, 0, len(s.config.AllowedOrigins))
	for _, o := range s.config.AllowedOrigins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

