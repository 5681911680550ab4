package analytics

import "github.com/convei-labs/fusion/internal/store"

// StressEpisode marks a window index whose metric suggested stress.
type StressEpisode struct {
	Index   int      `json:"index"`
	Factors []string `json:"factors"`
}

// EngagementDrop marks an index whose attention fell sharply from the
// previous sample.
type EngagementDrop struct {
	Index      int     `json:"index"`
	DropAmount float64 `json:"drop_amount"`
}

// PositiveMoment marks an index with a clearly positive signal.
type PositiveMoment struct {
	Index     int     `json:"index"`
	Emotion   string  `json:"emotion"`
	Sentiment float64 `json:"sentiment"`
}

type PatternSummary struct {
	StressCount          int    `json:"stress_count"`
	EngagementDropsCount int    `json:"engagement_drops_count"`
	PositiveMomentsCount int    `json:"positive_moments_count"`
	OverallHealth        string `json:"overall_health"` // positive, concerning, mixed, neutral
}

type Patterns struct {
	PatternsDetected bool             `json:"patterns_detected"`
	StressEpisodes   []StressEpisode  `json:"stress_indicators"`
	EngagementDrops  []EngagementDrop `json:"engagement_drops"`
	PositiveMoments  []PositiveMoment `json:"positive_moments"`
	Summary          PatternSummary   `json:"summary"`
}

// DetectPatterns walks the window once and tags stress episodes,
// engagement drops, and positive moments. Fewer than three points is too
// short for pattern detection.
func DetectPatterns(window []store.UnifiedMetric) Patterns {
	if len(window) < 3 {
		return Patterns{}
	}

	p := Patterns{
		PatternsDetected: true,
		StressEpisodes:   []StressEpisode{},
		EngagementDrops:  []EngagementDrop{},
		PositiveMoments:  []PositiveMoment{},
	}

	for i, m := range window {
		emotion := m.Emotion()
		fatigue := m.Fatigue()
		attention := m.Attention()
		sentiment := m.Sentiment()

		if fatigue == "Moderate" || fatigue == "Severe" ||
			((emotion == "angry" || emotion == "fear") && attention > 60) {
			p.StressEpisodes = append(p.StressEpisodes, StressEpisode{
				Index:   i,
				Factors: []string{fatigue, emotion},
			})
		}

		if i > 0 {
			prev := window[i-1].Attention()
			if attention < prev-20 {
				p.EngagementDrops = append(p.EngagementDrops, EngagementDrop{
					Index:      i,
					DropAmount: prev - attention,
				})
			}
		}

		if emotion == "happy" || sentiment > 0.4 {
			p.PositiveMoments = append(p.PositiveMoments, PositiveMoment{
				Index:     i,
				Emotion:   emotion,
				Sentiment: sentiment,
			})
		}
	}

	p.Summary = PatternSummary{
		StressCount:          len(p.StressEpisodes),
		EngagementDropsCount: len(p.EngagementDrops),
		PositiveMomentsCount: len(p.PositiveMoments),
		OverallHealth:        assessHealth(len(p.StressEpisodes), len(p.EngagementDrops), len(p.PositiveMoments)),
	}
	return p
}

func assessHealth(stress, drops, positive int) string {
	switch {
	case positive > stress+drops:
		return "positive"
	case stress > 3 || drops > 3:
		return "concerning"
	case stress > 0 || drops > 0:
		return "mixed"
	default:
		return "neutral"
	}
}
