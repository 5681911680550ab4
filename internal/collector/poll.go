package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var pollClient = &http.Client{Timeout: 5 * time.Second}

// pollURL is the point-query endpoint returning the same data shape as a
// unified_state event.
func (c *Collector) pollURL() string {
	return strings.TrimRight(c.cfg.URL, "/") + "/api/data"
}

// pollUntil polls the sensing process at the configured interval until the
// deadline passes or ctx is cancelled. Repeated failures back off to the
// configured failure interval so a dead endpoint is not hammered.
func (c *Collector) pollUntil(ctx context.Context, deadline time.Time) {
	interval := c.cfg.PollInterval()
	for time.Now().Before(deadline) {
		if err := c.pollOnce(ctx); err != nil {
			c.log.Debug("poll failed", zap.Error(err))
			if !sleepCtx(ctx, c.cfg.PollBackoff()) {
				return
			}
			continue
		}
		c.heartbeat()
		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

func (c *Collector) pollOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pollURL(), nil)
	if err != nil {
		return err
	}
	resp, err := pollClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("poll returned status %d", resp.StatusCode)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode poll response: %w", err)
	}
	c.processEnvelope(ctx, Envelope{Type: typeUnifiedState, Data: data})
	return nil
}

// sleepCtx sleeps for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
