package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/derive"
	"github.com/convei-labs/fusion/internal/snapshot"
	"github.com/convei-labs/fusion/internal/store"
)

// processEnvelope dispatches one inbound event. Write failures are logged
// and swallowed: ingestion is at-least-once with drop-on-exhaustion, a bad
// event must never kill the collection loop.
func (c *Collector) processEnvelope(ctx context.Context, env Envelope) {
	ts := nowSeconds()
	switch env.Type {
	case typeVideoAnalysis:
		c.processVideo(ctx, env.Data, ts)
	case typeAudioAnalysis:
		c.processAudio(ctx, env.Data, ts)
	case typeUnifiedState:
		c.processUnified(ctx, env.Data, ts)
	case typeVideoFrame:
		c.processFrame(env.Data, ts)
	default:
		c.log.Debug("ignoring unknown event type", zap.String("type", env.Type))
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixMilli()) / 1000.0
}

func (c *Collector) processVideo(ctx context.Context, data map[string]any, ts float64) {
	m := store.VideoMetric{
		SessionID:        c.sessionID,
		Timestamp:        ts,
		Emotion:          getString(data, "emotion"),
		EmotionScores:    getFloatMap(data, "emotion_scores"),
		AttentionState:   getString(data, "attention_state"),
		PostureState:     getString(data, "posture_state"),
		MovementLevel:    getString(data, "movement_level"),
		BlinkRate:        getFloat(data, "blink_rate"),
		TotalBlinks:      getInt(data, "total_blinks", "total_blink_count"),
		EAR:              getFloat(data, "ear"),
		EARThreshold:     getFloat(data, "ear_threshold"),
		EyeAsymmetry:     getFloat(data, "eye_asymmetry"),
		BlinkDuration:    getFloat(data, "blink_duration"),
		BlinkInterval:    getFloat(data, "blink_interval"),
		FatigueLevel:     getString(data, "fatigue_level"),
		DrowsinessScore:  getFloat(data, "drowsiness_score"),
		FPS:              getFloat(data, "fps"),
		ObjectDetections: getMapSlice(data, "object_detections", "current_detections"),
		PersonTracking:   getMap(data, "person_tracking", "main_person"),
	}
	if err := c.store.AppendVideoMetric(ctx, &m); err != nil {
		c.log.Warn("dropping video metric", zap.Error(err))
		c.noteDrop(ctx, "video")
	}
}

func (c *Collector) processAudio(ctx context.Context, data map[string]any, ts float64) {
	features := getMap(data, "audio_features")
	if features == nil {
		features = map[string]any{}
	}
	pick := func(key string) *float64 {
		if v := getFloat(data, key); v != nil {
			return v
		}
		return getFloat(features, key)
	}

	m := store.AudioMetric{
		SessionID:     c.sessionID,
		Timestamp:     ts,
		Transcription: getString(data, "transcription"),
		Emotion:       getString(data, "emotion"),
		Sentiment:     getFloat(data, "sentiment"),
		Confidence:    getString(data, "confidence_label", "confidence"),
		Energy:        pick("energy"),
		Pitch:         pick("pitch"),
		SpeechRate:    pick("speech_rate"),
		SilenceRatio:  pick("silence_ratio"),
		EnergyZScore:  pick("energy_z_score"),
		PitchZScore:   pick("pitch_z_score"),
		RateZScore:    pick("rate_z_score"),
		ChunkDuration: getFloat(data, "chunk_duration"),
		SampleRate:    getInt(data, "sample_rate"),
		WordCount:     getInt(data, "word_count", "total_words"),
	}
	if err := c.store.AppendAudioMetric(ctx, &m); err != nil {
		c.log.Warn("dropping audio metric", zap.Error(err))
		c.noteDrop(ctx, "audio")
	}
}

// processUnified fans one fused snapshot out to all three tables: the
// embedded video and audio sub-objects are stored as companion records
// first, then the unified record with its derived fields.
func (c *Collector) processUnified(ctx context.Context, data map[string]any, ts float64) {
	videoData := getMap(data, "video")
	if videoData == nil {
		videoData = map[string]any{}
	}
	audioData := getMap(data, "audio")
	if audioData == nil {
		audioData = map[string]any{}
	}

	c.processVideo(ctx, videoData, ts)
	c.processAudio(ctx, audioData, ts)

	emotion := orDefault(getString(videoData, "emotion"), "neutral")
	attention := orDefault(getString(videoData, "attention_state"), "Unknown")
	posture := orDefault(getString(videoData, "posture_state"), "Unknown")
	movement := orDefault(getString(videoData, "movement_level"), "Unknown")
	fatigue := orDefault(getString(videoData, "fatigue_level"), "Normal")
	sentiment := 0.0
	if v := getFloat(audioData, "sentiment"); v != nil {
		sentiment = *v
	}
	confidence := orDefault(getString(audioData, "confidence_label"), "medium")

	attentionScore := derive.AttentionScore(attention)
	engagement := derive.EngagementLevel(attention, emotion, sentiment)
	stress := derive.Stress(movement, posture, emotion, sentiment)
	confidenceLevel := derive.ConfidenceLevel(confidence)

	m := store.UnifiedMetric{
		SessionID:         c.sessionID,
		Timestamp:         ts,
		UnifiedEmotion:    &emotion,
		UnifiedAttention:  &attention,
		UnifiedPosture:    &posture,
		UnifiedMovement:   &movement,
		UnifiedFatigue:    &fatigue,
		UnifiedSentiment:  &sentiment,
		UnifiedConfidence: &confidence,
		AttentionScore:    &attentionScore,
		EngagementLevel:   &engagement,
		StressIndicators:  &stress,
		ConfidenceLevel:   &confidenceLevel,
		VideoData:         videoData,
		AudioData:         audioData,
	}
	if err := c.store.AppendUnifiedMetric(ctx, &m); err != nil {
		c.log.Warn("dropping unified metric", zap.Error(err))
		c.noteDrop(ctx, "unified")
		return
	}
	c.cache.SetState(&m)
}

func (c *Collector) processFrame(data map[string]any, ts float64) {
	frame := getString(data, "frame")
	if frame == nil {
		return
	}
	if v := getFloat(data, "timestamp"); v != nil {
		ts = *v
	}
	c.cache.SetFrame(&snapshot.Frame{Data: *frame, Timestamp: ts})
}

func orDefault(s *string, def string) string {
	if s != nil {
		return *s
	}
	return def
}
