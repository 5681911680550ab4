// Package store persists behavioral metrics in the embedded sqlite
// database and answers point, range, and aggregate queries over them.
// All writes go through a bounded retry so concurrent collector and
// query handles can share the single store file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/derive"
)

// Store wraps a database handle with the metric table operations.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New creates a Store over an open database handle.
func New(db *sql.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// DB exposes the underlying handle for components that keep their own
// auxiliary tables (collector state, journal).
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateSession inserts a session row. Creating a session that already
// exists is a no-op; the return value reports whether a row was created.
func (s *Store) CreateSession(ctx context.Context, sessionID string, userID *string, startTime float64) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("session id is required")
	}
	var created bool
	err := withRetry(ctx, s.log, "create_session", func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO sessions (session_id, user_id, start_time)
			VALUES (?, ?, ?)
			ON CONFLICT(session_id) DO NOTHING
		`, sessionID, userID, startTime)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to create session: %w", err)
	}
	return created, nil
}

// AppendVideoMetric stores one video observation.
func (s *Store) AppendVideoMetric(ctx context.Context, m *VideoMetric) error {
	err := withRetry(ctx, s.log, "append_video", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO video_metrics (
				session_id, timestamp, emotion, emotion_scores, attention_state,
				posture_state, movement_level, blink_rate, total_blinks, ear,
				ear_threshold, eye_asymmetry, blink_duration, blink_interval,
				fatigue_level, drowsiness_score, fps, object_detections, person_tracking
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.SessionID, m.Timestamp, m.Emotion,
			jsonValue(m.EmotionScores, len(m.EmotionScores) > 0),
			m.AttentionState, m.PostureState, m.MovementLevel,
			m.BlinkRate, m.TotalBlinks, m.EAR, m.EARThreshold,
			m.EyeAsymmetry, m.BlinkDuration, m.BlinkInterval,
			m.FatigueLevel, m.DrowsinessScore, m.FPS,
			jsonValue(m.ObjectDetections, len(m.ObjectDetections) > 0),
			jsonValue(m.PersonTracking, len(m.PersonTracking) > 0),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save video metric: %w", err)
	}
	return nil
}

// AppendAudioMetric stores one audio observation.
func (s *Store) AppendAudioMetric(ctx context.Context, m *AudioMetric) error {
	err := withRetry(ctx, s.log, "append_audio", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO audio_metrics (
				session_id, timestamp, transcription, emotion, sentiment, confidence,
				energy, pitch, speech_rate, silence_ratio, energy_z_score,
				pitch_z_score, rate_z_score, chunk_duration, sample_rate, word_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.SessionID, m.Timestamp, m.Transcription,
			m.Emotion, m.Sentiment, m.Confidence,
			m.Energy, m.Pitch, m.SpeechRate, m.SilenceRatio,
			m.EnergyZScore, m.PitchZScore, m.RateZScore,
			m.ChunkDuration, m.SampleRate, m.WordCount,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save audio metric: %w", err)
	}
	return nil
}

// AppendUnifiedMetric stores one fused snapshot.
func (s *Store) AppendUnifiedMetric(ctx context.Context, m *UnifiedMetric) error {
	err := withRetry(ctx, s.log, "append_unified", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO unified_metrics (
				session_id, timestamp, unified_emotion, unified_attention,
				unified_posture, unified_movement, unified_fatigue, unified_sentiment,
				unified_confidence, attention_score, engagement_level, stress_indicators,
				confidence_level, video_data, audio_data
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.SessionID, m.Timestamp, m.UnifiedEmotion, m.UnifiedAttention,
			m.UnifiedPosture, m.UnifiedMovement, m.UnifiedFatigue, m.UnifiedSentiment,
			m.UnifiedConfidence, m.AttentionScore, m.EngagementLevel,
			jsonValue(m.StressIndicators, m.StressIndicators != nil),
			m.ConfidenceLevel,
			jsonValue(m.VideoData, len(m.VideoData) > 0),
			jsonValue(m.AudioData, len(m.AudioData) > 0),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save unified metric: %w", err)
	}
	return nil
}

// GetLatest returns the most recent unified metric for a session, or nil
// when the session has no metrics.
func (s *Store) GetLatest(ctx context.Context, sessionID string) (*UnifiedMetric, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+unifiedColumns+`
		FROM unified_metrics
		WHERE session_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, sessionID)
	m, err := s.scanUnified(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest metric: %w", err)
	}
	return m, nil
}

// GetRange returns the unified metrics for a session within [start, end],
// sorted ascending by timestamp regardless of write arrival order.
func (s *Store) GetRange(ctx context.Context, sessionID string, start, end float64) ([]UnifiedMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+unifiedColumns+`
		FROM unified_metrics
		WHERE session_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, sessionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics range: %w", err)
	}
	defer rows.Close()

	var out []UnifiedMetric
	for rows.Next() {
		m, err := s.scanUnified(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unified metric: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating metrics range: %w", err)
	}
	return out, nil
}

const unifiedColumns = `id, session_id, timestamp, unified_emotion, unified_attention,
	unified_posture, unified_movement, unified_fatigue, unified_sentiment,
	unified_confidence, attention_score, engagement_level, stress_indicators,
	confidence_level, video_data, audio_data`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUnified(row rowScanner) (*UnifiedMetric, error) {
	var m UnifiedMetric
	var (
		emotion, attention, posture, movement, fatigue, confidence, engagement sql.NullString
		sentiment, attnScore, confLevel                                        sql.NullFloat64
		stress, videoData, audioData                                           sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.SessionID, &m.Timestamp, &emotion, &attention,
		&posture, &movement, &fatigue, &sentiment,
		&confidence, &attnScore, &engagement, &stress,
		&confLevel, &videoData, &audioData,
	)
	if err != nil {
		return nil, err
	}
	m.UnifiedEmotion = strPtr(emotion)
	m.UnifiedAttention = strPtr(attention)
	m.UnifiedPosture = strPtr(posture)
	m.UnifiedMovement = strPtr(movement)
	m.UnifiedFatigue = strPtr(fatigue)
	m.UnifiedSentiment = floatPtr(sentiment)
	m.UnifiedConfidence = strPtr(confidence)
	m.AttentionScore = floatPtr(attnScore)
	m.EngagementLevel = strPtr(engagement)
	m.ConfidenceLevel = floatPtr(confLevel)
	m.StressIndicators = parseJSONPtr[derive.StressIndicators](s.log, "stress_indicators", stress)
	m.VideoData = parseJSONMap(s.log, "video_data", videoData)
	m.AudioData = parseJSONMap(s.log, "audio_data", audioData)
	return &m, nil
}

// jsonValue serializes a structured sub-object for a text column, storing
// NULL when the value is absent.
func jsonValue(v any, present bool) any {
	if !present {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

// Malformed serialized sub-objects are tolerated: the field comes back nil
// and the row is still served.
func parseJSONMap(log *zap.Logger, col string, s sql.NullString) map[string]any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		log.Debug("malformed serialized column", zap.String("column", col), zap.Error(err))
		return nil
	}
	return out
}

func parseJSONPtr[T any](log *zap.Logger, col string, s sql.NullString) *T {
	if !s.Valid || s.String == "" {
		return nil
	}
	out := new(T)
	if err := json.Unmarshal([]byte(s.String), out); err != nil {
		log.Debug("malformed serialized column", zap.String("column", col), zap.Error(err))
		return nil
	}
	return out
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}
