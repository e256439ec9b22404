package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// StreamEvents upgrades the request and forwards tracker events as JSON text
// messages until either side goes away.
func StreamEvents(s *Service, w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Failed to accept websocket client")
		return
	}
	defer c.CloseNow()

	events, unsub := s.tracker.Subscribe()
	defer unsub()

	// Clients never send anything; CloseRead handles their close frame.
	ctx := c.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.Close(websocket.StatusGoingAway, "tracker stopped")
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				log.WithError(err).Warn("Failed to encode tracker event")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, b)
			cancel()
			if err != nil {
				log.WithError(err).Debug("Websocket client went away")
				return
			}
		}
	}
}
