package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const liveReadTimeout = 90 * time.Second

// wsURL converts the sensing base URL into the live channel endpoint.
func (c *Collector) wsURL() string {
	u := c.cfg.URL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return strings.TrimRight(u, "/") + "/ws"
}

// runLive attaches to the live event channel and consumes until the
// connection drops or ctx is cancelled. On connect it requests a full
// state snapshot so the pipeline is primed without waiting for the next
// natural emission.
func (c *Collector) runLive(ctx context.Context) error {
	url := c.wsURL()
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial live channel %s: %w", url, err)
	}
	defer conn.Close()

	c.log.Info("live channel connected", zap.String("url", url))
	c.journalEvent(ctx, "live_channel_connected", nil)
	c.setStatus("running", "live")

	if err := conn.WriteMessage(websocket.TextMessage, requestData); err != nil {
		return fmt.Errorf("failed to request initial data: %w", err)
	}

	// Unblock the read loop on shutdown. ReadMessage has no ctx form, so
	// closing the socket is the cancellation path.
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
		if err := conn.SetReadDeadline(time.Now().Add(liveReadTimeout)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("live channel read failed: %w", err)
		}
		env, err := parseEnvelope(raw)
		if err != nil {
			c.log.Debug("ignoring malformed event", zap.Error(err))
			continue
		}
		c.processEnvelope(ctx, env)
		c.heartbeat()
	}
}
