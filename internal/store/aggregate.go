package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Aggregate is a windowed summary computed entirely in SQL so large
// windows never materialize their rows in memory.
type Aggregate struct {
	WindowSeconds    int     `json:"window_seconds"`
	MetricCount      int64   `json:"metric_count"`
	DominantEmotion  string  `json:"dominant_emotion"`
	AverageSentiment float64 `json:"average_sentiment"`
	AverageAttention float64 `json:"average_attention"`
	MinAttention     float64 `json:"min_attention"`
	MaxAttention     float64 `json:"max_attention"`
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time"`
}

// GetAggregated summarizes the unified metrics for a session over the
// trailing window. A window with no rows yields a zero MetricCount and
// neutral defaults, never an error.
func (s *Store) GetAggregated(ctx context.Context, sessionID string, windowSeconds int, now time.Time) (*Aggregate, error) {
	end := float64(now.UnixMilli()) / 1000.0
	start := end - float64(windowSeconds)

	agg := &Aggregate{
		WindowSeconds:    windowSeconds,
		DominantEmotion:  "neutral",
		AverageAttention: 50.0,
		StartTime:        start,
		EndTime:          end,
	}

	var count int64
	var avgSentiment, avgAttention, minAttention, maxAttention sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			AVG(unified_sentiment),
			AVG(attention_score),
			MIN(attention_score),
			MAX(attention_score)
		FROM unified_metrics
		WHERE session_id = ? AND timestamp >= ? AND timestamp <= ?
	`, sessionID, start, end).Scan(&count, &avgSentiment, &avgAttention, &minAttention, &maxAttention)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate metrics: %w", err)
	}
	agg.MetricCount = count
	if count == 0 {
		return agg, nil
	}
	if avgSentiment.Valid {
		agg.AverageSentiment = avgSentiment.Float64
	}
	if avgAttention.Valid {
		agg.AverageAttention = avgAttention.Float64
	}
	if minAttention.Valid {
		agg.MinAttention = minAttention.Float64
	}
	if maxAttention.Valid {
		agg.MaxAttention = maxAttention.Float64
	}

	var dominant sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT unified_emotion
		FROM unified_metrics
		WHERE session_id = ? AND timestamp >= ? AND timestamp <= ?
			AND unified_emotion IS NOT NULL
		GROUP BY unified_emotion
		ORDER BY COUNT(*) DESC
		LIMIT 1
	`, sessionID, start, end).Scan(&dominant)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to aggregate dominant emotion: %w", err)
	}
	if dominant.Valid && dominant.String != "" {
		agg.DominantEmotion = dominant.String
	}

	return agg, nil
}

// SessionStats summarizes a whole session.
type SessionStats struct {
	SessionID       string  `json:"session_id"`
	MetricCount     int64   `json:"metric_count"`
	FirstTimestamp  float64 `json:"first_timestamp"`
	LastTimestamp   float64 `json:"last_timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
	DurationClamped bool    `json:"duration_clamped,omitempty"`
}

const maxPlausibleDuration = 24 * 60 * 60 // seconds

// GetSessionStats computes per-session extent from the unified table.
// A duration above 24h is treated as a seconds/milliseconds unit mismatch
// and re-derived by dividing by 1000; if still implausible it is clamped
// to 24h and flagged.
func (s *Store) GetSessionStats(ctx context.Context, sessionID string) (*SessionStats, error) {
	stats := &SessionStats{SessionID: sessionID}
	var first, last sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM unified_metrics
		WHERE session_id = ?
	`, sessionID).Scan(&stats.MetricCount, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to compute session stats: %w", err)
	}
	if stats.MetricCount == 0 {
		return stats, nil
	}
	stats.FirstTimestamp = first.Float64
	stats.LastTimestamp = last.Float64

	duration := stats.LastTimestamp - stats.FirstTimestamp
	if duration > maxPlausibleDuration {
		// Unit mismatch: some producers emit millisecond timestamps.
		duration = duration / 1000.0
		if duration > maxPlausibleDuration {
			duration = maxPlausibleDuration
			stats.DurationClamped = true
		}
	}
	stats.DurationSeconds = duration
	return stats, nil
}
