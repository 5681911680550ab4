package collector

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/config"
	"github.com/convei-labs/fusion/internal/db"
	"github.com/convei-labs/fusion/internal/snapshot"
	"github.com/convei-labs/fusion/internal/store"
)

func newTestCollector(t *testing.T) (*Collector, *store.Store, *snapshot.Cache) {
	t.Helper()
	t.Setenv("FUSION_DATA_DIR", t.TempDir())
	if err := db.Init(); err != nil {
		t.Fatalf("failed to init database: %v", err)
	}
	handle, err := db.Open()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	s := store.New(handle, zap.NewNop())
	cache := snapshot.NewCache()
	cfg := config.SensingConfig{
		URL:                 "http://localhost:5000",
		SessionID:           "test-session",
		PollIntervalSeconds: 1,
		PollBackoffSeconds:  5,
	}
	return New(cfg, s, cache, zap.NewNop()), s, cache
}

func TestParseEnvelope(t *testing.T) {
	env, err := parseEnvelope([]byte(`{"type":"unified_state","data":{"video":{"emotion":"happy"}}}`))
	if err != nil {
		t.Fatalf("parseEnvelope: %v", err)
	}
	if env.Type != "unified_state" {
		t.Errorf("Type = %q, want unified_state", env.Type)
	}
	if getMap(env.Data, "video") == nil {
		t.Error("nested data lost in parsing")
	}

	if _, err := parseEnvelope([]byte("not json")); err == nil {
		t.Error("malformed payload should error")
	}
}

func TestLenientGetters(t *testing.T) {
	m := map[string]any{
		"emotion":           "happy",
		"blink_rate":        12.5,
		"total_blink_count": 42.0,
		"empty":             "",
		"audio_features":    map[string]any{"pitch": 220.0},
		"current_detections": []any{
			map[string]any{"label": "person"},
			"junk",
		},
	}

	if got := getString(m, "emotion"); got == nil || *got != "happy" {
		t.Errorf("getString(emotion) = %v", got)
	}
	if got := getString(m, "empty", "emotion"); got == nil || *got != "happy" {
		t.Error("empty strings should fall through to the next key")
	}
	if got := getString(m, "missing"); got != nil {
		t.Errorf("getString(missing) = %v, want nil", *got)
	}
	if got := getFloat(m, "blink_rate"); got == nil || *got != 12.5 {
		t.Errorf("getFloat(blink_rate) = %v", got)
	}
	if got := getInt(m, "total_blinks", "total_blink_count"); got == nil || *got != 42 {
		t.Errorf("getInt alternative key = %v", got)
	}
	if got := getMap(m, "audio_features"); got == nil || got["pitch"] != 220.0 {
		t.Errorf("getMap(audio_features) = %v", got)
	}
	if got := getMapSlice(m, "object_detections", "current_detections"); len(got) != 1 {
		t.Errorf("getMapSlice should keep only map entries, got %v", got)
	}
}

func TestProcessUnifiedPopulatesAllTables(t *testing.T) {
	c, s, cache := newTestCollector(t)
	ctx := context.Background()

	env := Envelope{
		Type: typeUnifiedState,
		Data: map[string]any{
			"video": map[string]any{
				"emotion":         "happy",
				"attention_state": "Focused",
				"posture_state":   "Good",
				"movement_level":  "Low",
				"fatigue_level":   "Normal",
			},
			"audio": map[string]any{
				"sentiment":        0.6,
				"confidence_label": "high",
				"transcription":    "sounds great",
			},
		},
	}
	c.processEnvelope(ctx, env)

	m, err := s.GetLatest(ctx, "test-session")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if m == nil {
		t.Fatal("unified metric was not written")
	}
	if *m.UnifiedEmotion != "happy" || *m.UnifiedSentiment != 0.6 {
		t.Errorf("unified fields = %+v", m)
	}
	if *m.AttentionScore != 90.0 {
		t.Errorf("AttentionScore = %v, want 90 (Focused)", *m.AttentionScore)
	}
	if *m.EngagementLevel != "high" {
		t.Errorf("EngagementLevel = %q, want high", *m.EngagementLevel)
	}
	if *m.ConfidenceLevel != 0.9 {
		t.Errorf("ConfidenceLevel = %v, want 0.9", *m.ConfidenceLevel)
	}
	if m.StressIndicators == nil {
		t.Fatal("stress indicators missing")
	}
	if m.StressIndicators.NegativeEmotion || m.StressIndicators.HighMovement {
		t.Errorf("calm observation flagged stress: %+v", m.StressIndicators)
	}

	// Companion rows landed in the modality tables.
	var videoCount, audioCount int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM video_metrics`).Scan(&videoCount); err != nil {
		t.Fatal(err)
	}
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM audio_metrics`).Scan(&audioCount); err != nil {
		t.Fatal(err)
	}
	if videoCount != 1 || audioCount != 1 {
		t.Errorf("companion rows = (video %d, audio %d), want (1, 1)", videoCount, audioCount)
	}

	// The snapshot cache carries the new state for the fan-out loops.
	if cached := cache.State(); cached == nil || *cached.UnifiedEmotion != "happy" {
		t.Error("snapshot cache was not updated")
	}
}

func TestProcessUnifiedDefaults(t *testing.T) {
	c, s, _ := newTestCollector(t)
	ctx := context.Background()

	// An empty unified_state still produces a total record.
	c.processEnvelope(ctx, Envelope{Type: typeUnifiedState, Data: map[string]any{}})

	m, err := s.GetLatest(ctx, "test-session")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("unified metric was not written")
	}
	if *m.UnifiedEmotion != "neutral" || *m.UnifiedAttention != "Unknown" ||
		*m.UnifiedFatigue != "Normal" || *m.AttentionScore != 50.0 {
		t.Errorf("defaults not applied: %+v", m)
	}
}

func TestProcessEnvelopeIgnoresUnknownTypes(t *testing.T) {
	c, s, _ := newTestCollector(t)
	ctx := context.Background()

	c.processEnvelope(ctx, Envelope{Type: "telemetry_v2", Data: map[string]any{"x": 1.0}})

	m, err := s.GetLatest(ctx, "test-session")
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Error("unknown event type must not produce a metric")
	}
}

func TestProcessFrameUpdatesCache(t *testing.T) {
	c, _, cache := newTestCollector(t)

	c.processEnvelope(context.Background(), Envelope{
		Type: typeVideoFrame,
		Data: map[string]any{"frame": "base64jpeg", "timestamp": 1234.5},
	})

	f := cache.Frame()
	if f == nil {
		t.Fatal("frame was not cached")
	}
	if f.Data != "base64jpeg" || f.Timestamp != 1234.5 {
		t.Errorf("frame = %+v", f)
	}
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:5000", "ws://localhost:5000/ws"},
		{"https://sensing.internal/", "wss://sensing.internal/ws"},
	}
	for _, tt := range tests {
		c := New(config.SensingConfig{URL: tt.base, SessionID: "s"}, nil, nil, zap.NewNop())
		if got := c.wsURL(); got != tt.want {
			t.Errorf("wsURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Minute) {
		t.Error("cancelled context should abort the sleep")
	}
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("expired timer should report completion")
	}
}
