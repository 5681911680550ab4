// Package analytics turns windows of unified metrics into emotional-state
// classifications, trends, behavioral patterns, and conversational guidance.
// Everything here is a pure function of its inputs so it can be tested
// without a database.
package analytics

import (
	"math"

	"github.com/convei-labs/fusion/internal/store"
)

// emotionValence is the fixed per-emotion lexicon used for valence and
// emotional-arc computations.
var emotionValence = map[string]float64{
	"happy":    1.0,
	"surprise": 0.5,
	"neutral":  0.0,
	"sad":      -0.5,
	"fear":     -0.7,
	"angry":    -0.8,
	"disgust":  -0.6,
}

// Intensity thresholds.
const (
	attentionHigh   = 75.0
	attentionLow    = 35.0
	sentimentStrong = 0.4
)

// Valence returns the lexicon valence for an emotion, 0 for unknown labels.
func Valence(emotion string) float64 {
	return emotionValence[emotion]
}

// EmotionalState is the classification of a single unified metric.
type EmotionalState struct {
	PrimaryEmotion   string  `json:"primary_emotion"`
	Intensity        string  `json:"intensity"` // mild, moderate, strong
	Valence          float64 `json:"valence"`
	EmpathyNeeded    string  `json:"empathy_needed"` // low, moderate, high, very_high
	Complexity       string  `json:"complexity"`     // simple, mixed, complex
	FatigueFactor    bool    `json:"fatigue_factor"`
	EngagementLevel  string  `json:"engagement_level"`
	AttentionQuality string  `json:"attention_quality"` // low, moderate, high
}

// AnalyzeEmotionalState classifies the current metric. A nil metric yields
// the neutral default state rather than an error.
func AnalyzeEmotionalState(current *store.UnifiedMetric) EmotionalState {
	if current == nil {
		return EmotionalState{
			PrimaryEmotion:   "neutral",
			Intensity:        "mild",
			EmpathyNeeded:    "low",
			Complexity:       "simple",
			EngagementLevel:  "medium",
			AttentionQuality: "moderate",
		}
	}

	emotion := current.Emotion()
	sentiment := current.Sentiment()
	attention := current.Attention()
	fatigue := current.Fatigue()

	// Valence blends the lexicon value with the measured sentiment.
	valence := (Valence(emotion) + sentiment) / 2

	intensity := "mild"
	switch {
	case math.Abs(sentiment) > sentimentStrong:
		intensity = "strong"
	case attention > attentionHigh || attention < attentionLow:
		intensity = "strong"
	case math.Abs(sentiment) > 0.2:
		intensity = "moderate"
	}

	empathy := "low"
	switch emotion {
	case "sad", "fear", "angry":
		empathy = "high"
		if intensity == "strong" {
			empathy = "very_high"
		}
	case "surprise", "happy":
		if intensity == "strong" {
			empathy = "moderate"
		}
	}

	complexity := "simple"
	if fatigue != "Normal" && emotion != "neutral" {
		complexity = "complex"
	}
	if (emotion == "sad" || emotion == "angry") && sentiment > 0 {
		// Conflicting signals: negative face, positive speech.
		complexity = "mixed"
	}

	quality := "moderate"
	if attention > 70 {
		quality = "high"
	} else if attention < 40 {
		quality = "low"
	}

	return EmotionalState{
		PrimaryEmotion:   emotion,
		Intensity:        intensity,
		Valence:          valence,
		EmpathyNeeded:    empathy,
		Complexity:       complexity,
		FatigueFactor:    fatigue != "Normal",
		EngagementLevel:  current.Engagement(),
		AttentionQuality: quality,
	}
}

// Trends summarizes how the emotional signal moved across a window.
type Trends struct {
	EmotionStability   string   `json:"emotion_stability"`  // stable, moderate, volatile, unknown
	SentimentDirection string   `json:"sentiment_direction"` // improving, declining, stable
	AttentionPattern   string   `json:"attention_pattern"`   // consistent, fluctuating, improving, declining, unknown
	EmotionalArc       string   `json:"emotional_arc"`       // flat, brightening, darkening, shifting
	DominantEmotion    string   `json:"dominant_emotion"`
	EmotionSequence    []string `json:"emotion_sequence"`
}

// AnalyzeTrends computes stability, sentiment direction, attention pattern
// and the emotional arc over an ordered window. Fewer than two points yields
// the unknown/flat defaults.
func AnalyzeTrends(window []store.UnifiedMetric) Trends {
	if len(window) < 2 {
		return Trends{
			EmotionStability:   "unknown",
			SentimentDirection: "stable",
			AttentionPattern:   "unknown",
			EmotionalArc:       "flat",
			DominantEmotion:    "neutral",
		}
	}

	emotions := make([]string, len(window))
	var sentiments, attentions []float64
	for i, m := range window {
		emotions[i] = m.Emotion()
		if m.UnifiedSentiment != nil {
			sentiments = append(sentiments, *m.UnifiedSentiment)
		}
		if m.AttentionScore != nil {
			attentions = append(attentions, *m.AttentionScore)
		}
	}

	distinct := map[string]bool{}
	for _, e := range emotions {
		distinct[e] = true
	}
	stability := "volatile"
	if len(distinct) <= 2 {
		stability = "stable"
	} else if len(distinct) <= 4 {
		stability = "moderate"
	}

	direction := "stable"
	if len(sentiments) >= 3 {
		mid := len(sentiments) / 2
		firstMean := mean(sentiments[:mid])
		secondMean := mean(sentiments[mid:])
		if secondMean > firstMean+0.2 {
			direction = "improving"
		} else if secondMean < firstMean-0.2 {
			direction = "declining"
		}
	}

	pattern := "consistent"
	if len(attentions) >= 3 {
		if variance(attentions) > 400 {
			pattern = "fluctuating"
		} else if attentions[len(attentions)-1] < attentions[0]-15 {
			pattern = "declining"
		} else if attentions[len(attentions)-1] > attentions[0]+15 {
			pattern = "improving"
		}
	}

	mid := len(emotions) / 2
	firstDominant := dominant(emotions[:mid])
	secondDominant := dominant(emotions[mid:])
	arc := "flat"
	if firstDominant != "" && secondDominant != "" {
		firstValence := Valence(firstDominant)
		secondValence := Valence(secondDominant)
		switch {
		case secondValence > firstValence+0.3:
			arc = "brightening"
		case secondValence < firstValence-0.3:
			arc = "darkening"
		case secondDominant != firstDominant:
			arc = "shifting"
		}
	}

	sequence := emotions
	if len(sequence) > 5 {
		sequence = sequence[len(sequence)-5:]
	}

	return Trends{
		EmotionStability:   stability,
		SentimentDirection: direction,
		AttentionPattern:   pattern,
		EmotionalArc:       arc,
		DominantEmotion:    dominant(emotions),
		EmotionSequence:    sequence,
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return sum / float64(len(xs))
}

// dominant returns the most frequent element, first occurrence winning ties.
func dominant(xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, x := range xs {
		counts[x]++
	}
	best := xs[0]
	for _, x := range xs {
		if counts[x] > counts[best] {
			best = x
		}
	}
	return best
}
