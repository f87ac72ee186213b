package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plotwise/seedtrace"
)

const (
	heartbeatInterval = 30 * time.Second
	redialWait        = 5 * time.Second
)

type listenRequest struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// Subscriber keeps a websocket open against the realtime endpoint and
// applies discard events to the table as targeted row updates, so a mark
// made on another station shows up without a reload.
type Subscriber struct {
	endpoint string
	table    *Table
}

func NewSubscriber(baseURL string, table *Table) *Subscriber {
	endpoint := strings.TrimSuffix(baseURL, "/") + "/realtime"
	if u, err := url.Parse(endpoint); err == nil {
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		case "http":
			u.Scheme = "ws"
		}
		endpoint = u.String()
	}
	return &Subscriber{endpoint: endpoint, table: table}
}

// Run connects and listens on the scope's channel until the context is
// cancelled, redialing after connection loss.
func (s *Subscriber) Run(ctx context.Context, scope seedtrace.Scope) {
	for {
		if err := s.listen(ctx, scope); err != nil {
			slog.ErrorContext(ctx, "realtime connection lost", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialWait):
		}
	}
}

func (s *Subscriber) listen(ctx context.Context, scope seedtrace.Scope) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	request := listenRequest{Type: "listen", Channels: []string{scope.Channel()}}
	if err := conn.WriteJSON(request); err != nil {
		return err
	}

	messages := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			messages <- raw
		}
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case <-heartbeat.C:
			if err := conn.WriteJSON(listenRequest{Type: "h"}); err != nil {
				return err
			}
		case raw := <-messages:
			s.apply(ctx, raw)
		}
	}
}

// apply decodes one event and patches the matching row. Events for rows
// not currently displayed are dropped.
func (s *Subscriber) apply(ctx context.Context, raw []byte) {
	var event seedtrace.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		slog.ErrorContext(ctx, "failed to decode realtime event", slog.String("error", err.Error()))
		return
	}
	if s.table == nil {
		return
	}
	if event.RecordID != 0 && s.table.UpdateStatusByID(event.RecordID, event.Status) {
		return
	}
	if event.Barcode != "" {
		s.table.UpdateStatusByBarcode(event.Barcode, event.Status)
	}
}
