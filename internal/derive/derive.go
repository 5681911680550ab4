// Package derive holds the pure transforms that turn raw categorical
// observations into the scored fields stored on every unified metric.
package derive

// StressIndicators is the set of boolean stress signals derived from one
// unified observation.
type StressIndicators struct {
	HighBlinkRate     bool `json:"high_blink_rate"`
	NegativeEmotion   bool `json:"negative_emotion"`
	PoorPosture       bool `json:"poor_posture"`
	HighMovement      bool `json:"high_movement"`
	NegativeSentiment bool `json:"negative_sentiment"`
}

var attentionScores = map[string]float64{
	"Focused":           90.0,
	"Partially Focused": 60.0,
	"Distracted":        30.0,
	"Unknown":           50.0,
}

// AttentionScore maps a categorical attention state to a 0-100 score.
// Unknown or unrecognized states map to 50. The dashboard historically
// reported unknown attention as null; the stored metric always carries
// the 50.0 default so windowed averages stay total.
func AttentionScore(attentionState string) float64 {
	if score, ok := attentionScores[attentionState]; ok {
		return score
	}
	return 50.0
}

// EngagementLevel classifies engagement as high, medium, or low.
func EngagementLevel(attentionState, emotion string, sentiment float64) string {
	if attentionState == "Focused" && (emotion == "happy" || emotion == "surprise") && sentiment > 0.3 {
		return "high"
	}
	if attentionState == "Distracted" && (emotion == "sad" || emotion == "angry") && sentiment < -0.3 {
		return "low"
	}
	return "medium"
}

// Stress derives the boolean stress indicator set from one observation.
func Stress(movementLevel, postureState, emotion string, sentiment float64) StressIndicators {
	var s StressIndicators
	if movementLevel == "High" {
		s.HighMovement = true
	}
	if postureState == "Fair" || postureState == "Poor" {
		s.PoorPosture = true
	}
	switch emotion {
	case "sad", "angry", "fear":
		s.NegativeEmotion = true
	}
	if sentiment < -0.3 {
		s.NegativeSentiment = true
	}
	return s
}

var confidenceLevels = map[string]float64{
	"high":   0.9,
	"medium": 0.6,
	"low":    0.3,
}

// ConfidenceLevel maps a categorical confidence label to [0,1], 0.5 default.
func ConfidenceLevel(label string) float64 {
	if v, ok := confidenceLevels[label]; ok {
		return v
	}
	return 0.5
}

var fatigueScores = map[string]float64{
	"Normal":   20.0,
	"Mild":     40.0,
	"Moderate": 60.0,
	"Severe":   80.0,
}

// FatigueScore maps a categorical fatigue level to a 0-100 score, 20 default.
func FatigueScore(fatigueLevel string) float64 {
	if v, ok := fatigueScores[fatigueLevel]; ok {
		return v
	}
	return 20.0
}
