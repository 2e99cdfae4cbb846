package onebot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhalslar/portrayal-go/internal/logger"
)

const (
	reconnectInitialDelay = time.Second
	reconnectMaxDelay     = 30 * time.Second
)

// Stream consumes the gateway's forward-WebSocket event endpoint and
// hands each decoded message event to a handler on its own goroutine,
// so slow invocations never hold up the read loop. Heartbeats,
// lifecycle notices and anything that is not a message are dropped
// here.
type Stream struct {
	URL         string
	AccessToken string
}

// Run connects and dispatches events until ctx is cancelled. Dropped
// connections are re-dialed with exponential backoff.
func (s *Stream) Run(ctx context.Context, handle func(context.Context, Event)) error {
	delay := reconnectInitialDelay
	for {
		if err := s.runOnce(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.L.Warn("event stream disconnected", "error", err, "retry_in", delay.String())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (s *Stream) runOnce(ctx context.Context, handle func(context.Context, Event)) error {
	header := http.Header{}
	if s.AccessToken != "" {
		header.Set("Authorization", fmt.Sprintf("Bearer %s", s.AccessToken))
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}
	defer conn.Close()
	logger.L.Info("event stream connected", "url", s.URL)

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			logger.L.Warn("undecodable event payload", "error", err)
			continue
		}
		if ev.PostType != "message" {
			continue
		}
		// An invocation can spend minutes in network calls and retry
		// delays; running it on the read loop would stall every other
		// command and starve the socket's ping handling.
		go handle(ctx, ev)
	}
}
