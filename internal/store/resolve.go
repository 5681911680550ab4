package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Recency windows for current-session resolution. The 1h/2h asymmetry is
// inherited behavior: live lookups expect activity within the hour, report
// aggregation tolerates a staler session before giving up entirely.
const (
	recencyWindow         = time.Hour
	fallbackRecencyWindow = 2 * time.Hour
)

// metricTables in resolution precedence: the unified table is the
// richest signal, the single-modality tables cover partial pipelines.
var metricTables = []string{"unified_metrics", "video_metrics", "audio_metrics"}

// resolution tiers, in order. Each tier is a (table, lookback) pair.
var resolutionTiers = []struct {
	table    string
	lookback time.Duration
}{
	{"unified_metrics", recencyWindow},
	{"video_metrics", recencyWindow},
	{"audio_metrics", recencyWindow},
	{"unified_metrics", fallbackRecencyWindow},
	{"video_metrics", fallbackRecencyWindow},
	{"audio_metrics", fallbackRecencyWindow},
}

// ResolveCurrentSession picks the most recently active session when the
// caller does not supply one. Tiers degrade from the unified table within
// the last hour down through the single-modality tables and the two-hour
// fallbacks; the first tier with any rows wins, so the result is
// deterministic for a given store state. When every tier is empty the
// final pass ignores recency entirely and returns the session with the
// newest row across all three tables. Returns "" when the store is empty.
func (s *Store) ResolveCurrentSession(ctx context.Context, now time.Time) (string, error) {
	nowSecs := float64(now.UnixMilli()) / 1000.0
	for _, tier := range resolutionTiers {
		sessionID, _, err := s.latestSessionIn(ctx, tier.table, nowSecs, tier.lookback)
		if err != nil {
			return "", err
		}
		if sessionID != "" {
			return sessionID, nil
		}
	}

	// Most recent overall, whatever the table.
	var bestSession string
	var bestTime float64
	for _, table := range metricTables {
		sessionID, lastTime, err := s.latestSessionIn(ctx, table, nowSecs, 0)
		if err != nil {
			return "", err
		}
		if sessionID != "" && lastTime > bestTime {
			bestSession, bestTime = sessionID, lastTime
		}
	}
	return bestSession, nil
}

func (s *Store) latestSessionIn(ctx context.Context, table string, nowSecs float64, lookback time.Duration) (string, float64, error) {
	query := fmt.Sprintf(`
		SELECT session_id, MAX(timestamp) AS last_time
		FROM %s
		WHERE timestamp >= ?
		GROUP BY session_id
		ORDER BY last_time DESC
		LIMIT 1
	`, table)

	cutoff := 0.0
	if lookback > 0 {
		cutoff = nowSecs - lookback.Seconds()
	}

	var sessionID string
	var lastTime float64
	err := s.db.QueryRowContext(ctx, query, cutoff).Scan(&sessionID, &lastTime)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to resolve session from %s: %w", table, err)
	}
	return sessionID, lastTime, nil
}
