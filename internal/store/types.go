package store

import (
	"github.com/convei-labs/fusion/internal/derive"
)

// Session identifies one analysis run.
type Session struct {
	ID        int64   `json:"id,omitempty"`
	SessionID string  `json:"session_id"`
	UserID    *string `json:"user_id,omitempty"`
	StartTime float64 `json:"start_time"`
}

// VideoMetric is one observation from the visual modality.
type VideoMetric struct {
	ID               int64              `json:"id,omitempty"`
	SessionID        string             `json:"session_id"`
	Timestamp        float64            `json:"timestamp"`
	Emotion          *string            `json:"emotion,omitempty"`
	EmotionScores    map[string]float64 `json:"emotion_scores,omitempty"`
	AttentionState   *string            `json:"attention_state,omitempty"`
	PostureState     *string            `json:"posture_state,omitempty"`
	MovementLevel    *string            `json:"movement_level,omitempty"`
	BlinkRate        *float64           `json:"blink_rate,omitempty"`
	TotalBlinks      *int64             `json:"total_blinks,omitempty"`
	EAR              *float64           `json:"ear,omitempty"`
	EARThreshold     *float64           `json:"ear_threshold,omitempty"`
	EyeAsymmetry     *float64           `json:"eye_asymmetry,omitempty"`
	BlinkDuration    *float64           `json:"blink_duration,omitempty"`
	BlinkInterval    *float64           `json:"blink_interval,omitempty"`
	FatigueLevel     *string            `json:"fatigue_level,omitempty"`
	DrowsinessScore  *float64           `json:"drowsiness_score,omitempty"`
	FPS              *float64           `json:"fps,omitempty"`
	ObjectDetections []map[string]any   `json:"object_detections,omitempty"`
	PersonTracking   map[string]any     `json:"person_tracking,omitempty"`
}

// AudioMetric is one observation from the speech modality.
type AudioMetric struct {
	ID            int64    `json:"id,omitempty"`
	SessionID     string   `json:"session_id"`
	Timestamp     float64  `json:"timestamp"`
	Transcription *string  `json:"transcription,omitempty"`
	Emotion       *string  `json:"emotion,omitempty"`
	Sentiment     *float64 `json:"sentiment,omitempty"`
	Confidence    *string  `json:"confidence,omitempty"`
	Energy        *float64 `json:"energy,omitempty"`
	Pitch         *float64 `json:"pitch,omitempty"`
	SpeechRate    *float64 `json:"speech_rate,omitempty"`
	SilenceRatio  *float64 `json:"silence_ratio,omitempty"`
	EnergyZScore  *float64 `json:"energy_z_score,omitempty"`
	PitchZScore   *float64 `json:"pitch_z_score,omitempty"`
	RateZScore    *float64 `json:"rate_z_score,omitempty"`
	ChunkDuration *float64 `json:"chunk_duration,omitempty"`
	SampleRate    *int64   `json:"sample_rate,omitempty"`
	WordCount     *int64   `json:"word_count,omitempty"`
}

// UnifiedMetric is one fused snapshot combining both modalities plus the
// derived fields. Written once per fusion cycle, immutable thereafter.
type UnifiedMetric struct {
	ID                int64                    `json:"id,omitempty"`
	SessionID         string                   `json:"session_id"`
	Timestamp         float64                  `json:"timestamp"`
	UnifiedEmotion    *string                  `json:"unified_emotion,omitempty"`
	UnifiedAttention  *string                  `json:"unified_attention,omitempty"`
	UnifiedPosture    *string                  `json:"unified_posture,omitempty"`
	UnifiedMovement   *string                  `json:"unified_movement,omitempty"`
	UnifiedFatigue    *string                  `json:"unified_fatigue,omitempty"`
	UnifiedSentiment  *float64                 `json:"unified_sentiment,omitempty"`
	UnifiedConfidence *string                  `json:"unified_confidence,omitempty"`
	AttentionScore    *float64                 `json:"attention_score,omitempty"`
	EngagementLevel   *string                  `json:"engagement_level,omitempty"`
	StressIndicators  *derive.StressIndicators `json:"stress_indicators,omitempty"`
	ConfidenceLevel   *float64                 `json:"confidence_level,omitempty"`
	VideoData         map[string]any           `json:"video_data,omitempty"`
	AudioData         map[string]any           `json:"audio_data,omitempty"`
}

// Emotion returns the unified emotion, defaulting to neutral.
func (m *UnifiedMetric) Emotion() string {
	if m != nil && m.UnifiedEmotion != nil && *m.UnifiedEmotion != "" {
		return *m.UnifiedEmotion
	}
	return "neutral"
}

// Sentiment returns the unified sentiment, defaulting to 0.
func (m *UnifiedMetric) Sentiment() float64 {
	if m != nil && m.UnifiedSentiment != nil {
		return *m.UnifiedSentiment
	}
	return 0
}

// Attention returns the attention score, defaulting to 50.
func (m *UnifiedMetric) Attention() float64 {
	if m != nil && m.AttentionScore != nil {
		return *m.AttentionScore
	}
	return 50
}

// AttentionState returns the categorical attention state, defaulting to Unknown.
func (m *UnifiedMetric) AttentionState() string {
	if m != nil && m.UnifiedAttention != nil && *m.UnifiedAttention != "" {
		return *m.UnifiedAttention
	}
	return "Unknown"
}

// Fatigue returns the fatigue level, defaulting to Normal.
func (m *UnifiedMetric) Fatigue() string {
	if m != nil && m.UnifiedFatigue != nil && *m.UnifiedFatigue != "" {
		return *m.UnifiedFatigue
	}
	return "Normal"
}

// Engagement returns the engagement level, defaulting to medium.
func (m *UnifiedMetric) Engagement() string {
	if m != nil && m.EngagementLevel != nil && *m.EngagementLevel != "" {
		return *m.EngagementLevel
	}
	return "medium"
}

// Confidence returns the confidence label, defaulting to medium.
func (m *UnifiedMetric) Confidence() string {
	if m != nil && m.UnifiedConfidence != nil && *m.UnifiedConfidence != "" {
		return *m.UnifiedConfidence
	}
	return "medium"
}

// Posture returns the posture state, defaulting to Unknown.
func (m *UnifiedMetric) Posture() string {
	if m != nil && m.UnifiedPosture != nil && *m.UnifiedPosture != "" {
		return *m.UnifiedPosture
	}
	return "Unknown"
}

// Movement returns the movement level, defaulting to Unknown.
func (m *UnifiedMetric) Movement() string {
	if m != nil && m.UnifiedMovement != nil && *m.UnifiedMovement != "" {
		return *m.UnifiedMovement
	}
	return "Unknown"
}
