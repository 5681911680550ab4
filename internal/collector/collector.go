// Package collector is the ingest bridge: it attaches to the external
// sensing process over a live event channel, falls back to HTTP polling
// when the channel is down, and writes normalized metrics to the store.
package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/config"
	"github.com/convei-labs/fusion/internal/journal"
	"github.com/convei-labs/fusion/internal/snapshot"
	"github.com/convei-labs/fusion/internal/state"
	"github.com/convei-labs/fusion/internal/store"
)

const stateComponent = "collector"

// Restart backoff for the live channel. Doubles on repeated failure,
// resets after a healthy run.
const (
	liveRetryBase = 3 * time.Second
	liveRetryMax  = 30 * time.Second
	healthyRun    = time.Minute
)

type Collector struct {
	cfg       config.SensingConfig
	store     *store.Store
	cache     *snapshot.Cache
	log       *zap.Logger
	sessionID string

	restartCount int
	dropCount    int
}

func New(cfg config.SensingConfig, s *store.Store, cache *snapshot.Cache, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	sessionID := cfg.SessionID
	if sessionID == "" {
		// No fixed session configured: mint one per collector run.
		sessionID = "session-" + uuid.NewString()
	}
	return &Collector{
		cfg:       cfg,
		store:     s,
		cache:     cache,
		log:       log.Named("collector"),
		sessionID: sessionID,
	}
}

// Run is the supervision loop. It keeps the live channel attached,
// degrades to polling while the channel is down, and never gives up:
// this is a long-running background service with no retry ceiling.
func (c *Collector) Run(ctx context.Context) error {
	var userID *string
	if c.cfg.UserID != "" {
		userID = &c.cfg.UserID
	}
	if _, err := c.store.CreateSession(ctx, c.sessionID, userID, nowSeconds()); err != nil {
		return fmt.Errorf("failed to create session %s: %w", c.sessionID, err)
	}
	c.log.Info("collector starting",
		zap.String("session_id", c.sessionID),
		zap.String("sensing_url", c.cfg.URL))
	c.journalEvent(ctx, "collector_started", nil)
	c.setStatus("running", "connecting")

	backoff := liveRetryBase
	for {
		if ctx.Err() != nil {
			c.setStatus("stopped", "")
			c.journalEvent(context.Background(), "collector_stopped", nil)
			return ctx.Err()
		}

		started := time.Now()
		err := c.runLive(ctx)
		if ctx.Err() != nil {
			c.setStatus("stopped", "")
			// ctx is already cancelled; the stop event still has to land.
			c.journalEvent(context.Background(), "collector_stopped", nil)
			return ctx.Err()
		}

		c.restartCount++
		c.log.Warn("live channel down, falling back to polling",
			zap.Error(err),
			zap.Int("restart_count", c.restartCount),
			zap.Duration("retry_in", backoff))
		c.journalEvent(ctx, "live_channel_down", map[string]any{
			"error":         err.Error(),
			"restart_count": c.restartCount,
		})
		c.setStatus("degraded", "polling")

		// Poll until the next live retry is due.
		c.pollUntil(ctx, time.Now().Add(backoff))

		if time.Since(started) > healthyRun {
			backoff = liveRetryBase
		} else {
			backoff *= 2
			if backoff > liveRetryMax {
				backoff = liveRetryMax
			}
		}
	}
}

// heartbeat persists liveness so the status command can tell a healthy
// collector from a wedged one.
func (c *Collector) heartbeat() {
	db := c.store.DB()
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := state.Set(db, stateComponent, "last_heartbeat", now); err != nil {
		c.log.Debug("failed to persist heartbeat", zap.Error(err))
	}
}

func (c *Collector) setStatus(status, mode string) {
	db := c.store.DB()
	if err := state.Set(db, stateComponent, "status", status); err != nil {
		c.log.Debug("failed to persist status", zap.Error(err))
		return
	}
	if mode != "" {
		_ = state.Set(db, stateComponent, "mode", mode)
	}
	_ = state.Set(db, stateComponent, "restart_count", strconv.Itoa(c.restartCount))
	c.heartbeat()
}

func (c *Collector) noteDrop(ctx context.Context, kind string) {
	c.dropCount++
	_ = state.Set(c.store.DB(), stateComponent, "drop_count", strconv.Itoa(c.dropCount))
	c.journalEvent(ctx, "metric_dropped", map[string]any{"kind": kind})
}

func (c *Collector) journalEvent(ctx context.Context, typ string, payload map[string]any) {
	if err := journal.Emit(ctx, c.store.DB(), typ, c.sessionID, payload); err != nil {
		c.log.Debug("failed to journal event", zap.String("type", typ), zap.Error(err))
	}
}
