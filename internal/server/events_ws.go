package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"forecastdesk/internal/events"
)

// EventsWSHandler pushes bus events to clients over a websocket. Same payloads
// as the SSE stream for clients that want a bidirectional transport.
type EventsWSHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsWSHandler creates a new websocket events handler
func NewEventsWSHandler(bus *events.Bus, log zerolog.Logger) *EventsWSHandler {
	return &EventsWSHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws requests
func (h *EventsWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	allowedTypes := parseTypesFilter(r.URL.Query().Get("types"))

	eventChan, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.log.Info().Str("remote", r.RemoteAddr).Msg("Client connected to websocket")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event, open := <-eventChan:
			if !open {
				conn.Close(websocket.StatusGoingAway, "event bus closed")
				return
			}
			if allowedTypes != nil && !allowedTypes[event.Type] {
				continue
			}

			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Error().Err(err).Msg("Failed to marshal event")
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				status := websocket.CloseStatus(err)
				if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
					h.log.Warn().Err(err).Msg("Websocket write failed")
				}
				return
			}
		}
	}
}
