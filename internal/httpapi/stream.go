package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tradeledger/backend/internal/domain"
)

const streamPingInterval = 30 * time.Second

type lastUpdatedEvent struct {
	Type string             `json:"type"`
	Data domain.LastUpdated `json:"data"`
}

func (a *API) handleLastUpdated(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.LastUpdated())
}

// handleStream pushes the current last-updated status on connect and again
// whenever the scheduler sees it change. Client messages are ignored.
func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(a.allowedOrigins),
	})
	if err != nil {
		a.log.Debug().Err(err).Msg("websocket upgrade rejected")
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	updates, unsubscribe := a.service.Subscribe()
	defer unsubscribe()

	if err := writeEvent(ctx, conn, a.service.LastUpdated()); err != nil {
		return
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := writeEvent(ctx, conn, status); err != nil {
				return
			}
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, status domain.LastUpdated) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, conn, lastUpdatedEvent{Type: "last-updated", Data: status})
}

// originPatterns turns CORS origins into the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			patterns = append(patterns, "*")
			continue
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
