package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/blogify/blog-api/internal/core/domain"
)

const (
	defaultHeartbeat = 30 * time.Second
	wsWriteTimeout   = 10 * time.Second
)

// Subscriber hands out post change streams that end with ctx.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.PostEvent, string)
}

// EventsHandler pushes post changes to connected clients over a websocket or
// a Server-Sent Events stream.
type EventsHandler struct {
	hub            Subscriber
	originPatterns []string
	heartbeat      time.Duration
	log            zerolog.Logger
}

// NewEventsHandler accepts websocket upgrades from the given origins. Entries
// may be full URLs or host patterns; "*" accepts any origin.
func NewEventsHandler(hub Subscriber, origins []string, log zerolog.Logger) *EventsHandler {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return &EventsHandler{
		hub:            hub,
		originPatterns: patterns,
		heartbeat:      defaultHeartbeat,
		log:            log.With().Str("component", "events_handler").Logger(),
	}
}

// WebSocket streams {"event": kind, "data": payload} messages until the
// client disconnects or the server shuts down.
//
// @Summary      Post change feed (websocket)
// @Tags         events
// @Router       /api/ws [get]
func (h *EventsHandler) WebSocket(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		// Accept has already written the failure response.
		h.log.Debug().Err(err).Msg("websocket upgrade rejected")
		return nil
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(c.Request().Context())
	events, id := h.hub.Subscribe(ctx)
	h.log.Debug().Str("sub_id", id).Str("transport", "ws").Msg("observer connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return nil
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, toEventMessage(ev))
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("sub_id", id).Msg("websocket write failed")
				return nil
			}
		}
	}
}

// Stream is the Server-Sent Events rendition of the change feed. A comment
// line is sent on every heartbeat to keep proxies from closing the stream.
//
// @Summary      Post change feed (server-sent events)
// @Tags         events
// @Produce      text/event-stream
// @Router       /api/events [get]
func (h *EventsHandler) Stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	events, id := h.hub.Subscribe(ctx)
	h.log.Debug().Str("sub_id", id).Str("transport", "sse").Msg("observer connected")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg := toEventMessage(ev)
			data, err := json.Marshal(msg.Data)
			if err != nil {
				h.log.Error().Err(err).Str("event", msg.Event).Msg("encode event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
