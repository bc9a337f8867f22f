package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/appgrid/catalog-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	feedWriteTimeout = 10 * time.Second
	feedPingInterval = 30 * time.Second
)

// FeedMessage is one websocket frame on the live catalog feed. Every
// snapshot frame carries the complete catalog, never a diff.
type FeedMessage struct {
	Type  string        `json:"type"`
	Apps  []*models.App `json:"apps,omitempty"`
	Total int           `json:"total,omitempty"`
}

// handleFeed streams full catalog snapshots over a websocket. The client
// receives the current snapshot on connect and a fresh one after every
// catalog change.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("feed websocket connected", "remote_addr", r.RemoteAddr)

	updates, release := s.catalog.Listen()
	defer release()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Closing the conn unblocks the reader when the writer side quits
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var wg sync.WaitGroup

	// Catalog snapshots -> WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		ping := time.NewTicker(feedPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case items, ok := <-updates:
				if !ok {
					return
				}
				if err := sendFeedMessage(conn, FeedMessage{
					Type:  "snapshot",
					Apps:  items,
					Total: len(items),
				}); err != nil {
					return
				}
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Drain the WebSocket for close detection
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("feed websocket read error", "error", err)
				}
				return
			}
		}
	}()

	wg.Wait()
	slog.Info("feed websocket disconnected", "remote_addr", r.RemoteAddr)
}

func sendFeedMessage(conn *websocket.Conn, msg FeedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal feed message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send feed message", "error", err)
		return err
	}
	return nil
}
