package derive

import "testing"

func TestAttentionScore(t *testing.T) {
	tests := []struct {
		state string
		want  float64
	}{
		{"Focused", 90.0},
		{"Partially Focused", 60.0},
		{"Distracted", 30.0},
		{"Unknown", 50.0},
		{"", 50.0},
		{"garbage", 50.0},
	}
	for _, tt := range tests {
		if got := AttentionScore(tt.state); got != tt.want {
			t.Errorf("AttentionScore(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestEngagementLevel(t *testing.T) {
	tests := []struct {
		name      string
		attention string
		emotion   string
		sentiment float64
		want      string
	}{
		{"focused happy positive", "Focused", "happy", 0.5, "high"},
		{"focused surprise positive", "Focused", "surprise", 0.4, "high"},
		{"focused happy but flat sentiment", "Focused", "happy", 0.3, "medium"},
		{"focused sad", "Focused", "sad", 0.5, "medium"},
		{"distracted sad negative", "Distracted", "sad", -0.5, "low"},
		{"distracted angry negative", "Distracted", "angry", -0.4, "low"},
		{"distracted angry mild", "Distracted", "angry", -0.3, "medium"},
		{"unknown state", "Unknown", "neutral", 0.0, "medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EngagementLevel(tt.attention, tt.emotion, tt.sentiment); got != tt.want {
				t.Errorf("EngagementLevel(%q, %q, %v) = %q, want %q",
					tt.attention, tt.emotion, tt.sentiment, got, tt.want)
			}
		})
	}
}

func TestStress(t *testing.T) {
	tests := []struct {
		name      string
		movement  string
		posture   string
		emotion   string
		sentiment float64
		want      StressIndicators
	}{
		{
			name: "all calm", movement: "Low", posture: "Good", emotion: "neutral", sentiment: 0.1,
			want: StressIndicators{},
		},
		{
			name: "everything elevated", movement: "High", posture: "Poor", emotion: "angry", sentiment: -0.8,
			want: StressIndicators{HighMovement: true, PoorPosture: true, NegativeEmotion: true, NegativeSentiment: true},
		},
		{
			name: "fair posture counts", movement: "Low", posture: "Fair", emotion: "happy", sentiment: 0.5,
			want: StressIndicators{PoorPosture: true},
		},
		{
			name: "fear is negative", movement: "Low", posture: "Good", emotion: "fear", sentiment: 0.0,
			want: StressIndicators{NegativeEmotion: true},
		},
		{
			name: "sentiment boundary", movement: "Low", posture: "Good", emotion: "neutral", sentiment: -0.3,
			want: StressIndicators{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stress(tt.movement, tt.posture, tt.emotion, tt.sentiment)
			if got != tt.want {
				t.Errorf("Stress() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		label string
		want  float64
	}{
		{"high", 0.9},
		{"medium", 0.6},
		{"low", 0.3},
		{"", 0.5},
		{"unknown", 0.5},
	}
	for _, tt := range tests {
		if got := ConfidenceLevel(tt.label); got != tt.want {
			t.Errorf("ConfidenceLevel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestFatigueScore(t *testing.T) {
	tests := []struct {
		level string
		want  float64
	}{
		{"Normal", 20.0},
		{"Mild", 40.0},
		{"Moderate", 60.0},
		{"Severe", 80.0},
		{"", 20.0},
	}
	for _, tt := range tests {
		if got := FatigueScore(tt.level); got != tt.want {
			t.Errorf("FatigueScore(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
