package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/store"
)

// CurrentState is the formatted current snapshot enriched with the
// emotional classification.
type CurrentState struct {
	Emotion          string  `json:"emotion"`
	Attention        string  `json:"attention"`
	AttentionScore   float64 `json:"attention_score,omitempty"`
	Engagement       string  `json:"engagement"`
	Sentiment        float64 `json:"sentiment"`
	Confidence       string  `json:"confidence"`
	Fatigue          string  `json:"fatigue,omitempty"`
	Posture          string  `json:"posture,omitempty"`
	Movement         string  `json:"movement,omitempty"`
	Intensity        string  `json:"emotional_intensity,omitempty"`
	EmpathyNeeded    string  `json:"empathy_level_needed,omitempty"`
	Complexity       string  `json:"emotional_complexity,omitempty"`
	EmotionalContext string  `json:"emotional_context"`
}

// EmotionalIntelligence is the condensed summary block for consumers that
// only want the headline classification.
type EmotionalIntelligence struct {
	PrimaryEmotion     string  `json:"primary_emotion"`
	EmotionalIntensity string  `json:"emotional_intensity"`
	EmotionalValence   float64 `json:"emotional_valence"`
	SuggestedApproach  string  `json:"suggested_approach"`
	EmpathyLevelNeeded string  `json:"empathy_level_needed"`
}

// Context is the full analytics payload for one session window.
type Context struct {
	CurrentState          CurrentState          `json:"current_state"`
	RecentTrends          Trends                `json:"recent_trends"`
	BehavioralPatterns    Patterns              `json:"behavioral_patterns"`
	BehavioralInsights    []string              `json:"behavioral_insights"`
	Recommendations       []string              `json:"recommendations"`
	ConversationGuidance  Guidance              `json:"conversation_guidance"`
	EmotionalIntelligence EmotionalIntelligence `json:"emotional_intelligence"`
}

// BuildContext assembles the full analytics context from a current metric
// and an ordered window. Both may be nil/empty; the result degrades to
// neutral defaults instead of failing.
func BuildContext(current *store.UnifiedMetric, window []store.UnifiedMetric) Context {
	state := AnalyzeEmotionalState(current)
	trends := AnalyzeTrends(window)
	patterns := DetectPatterns(window)
	guidance := GenerateGuidance(state, trends)

	return Context{
		CurrentState:         formatCurrentState(current, state),
		RecentTrends:         trends,
		BehavioralPatterns:   patterns,
		BehavioralInsights:   generateInsights(current, window, state),
		Recommendations:      generateRecommendations(state, trends, patterns),
		ConversationGuidance: guidance,
		EmotionalIntelligence: EmotionalIntelligence{
			PrimaryEmotion:     state.PrimaryEmotion,
			EmotionalIntensity: state.Intensity,
			EmotionalValence:   state.Valence,
			SuggestedApproach:  guidance.Approach,
			EmpathyLevelNeeded: state.EmpathyNeeded,
		},
	}
}

func formatCurrentState(current *store.UnifiedMetric, state EmotionalState) CurrentState {
	if current == nil {
		return CurrentState{
			Emotion:          "neutral",
			Attention:        "Unknown",
			Engagement:       "medium",
			Confidence:       "medium",
			EmotionalContext: "No data available",
		}
	}
	return CurrentState{
		Emotion:          current.Emotion(),
		Attention:        current.AttentionState(),
		AttentionScore:   current.Attention(),
		Engagement:       current.Engagement(),
		Sentiment:        current.Sentiment(),
		Confidence:       current.Confidence(),
		Fatigue:          current.Fatigue(),
		Posture:          current.Posture(),
		Movement:         current.Movement(),
		Intensity:        state.Intensity,
		EmpathyNeeded:    state.EmpathyNeeded,
		Complexity:       state.Complexity,
		EmotionalContext: emotionalContextString(current.Emotion(), state),
	}
}

func emotionalContextString(emotion string, state EmotionalState) string {
	switch emotion {
	case "happy":
		return fmt.Sprintf("User is expressing %s happiness - share in their joy!", state.Intensity)
	case "sad":
		return fmt.Sprintf("User appears %sly sad - approach with gentle empathy", state.Intensity)
	case "angry":
		return fmt.Sprintf("User shows %s frustration - stay calm and validate", state.Intensity)
	case "fear":
		return fmt.Sprintf("User seems %sly anxious - provide reassurance", state.Intensity)
	case "surprise":
		return fmt.Sprintf("User is %sly surprised - explore what caught their attention", state.Intensity)
	case "neutral":
		return "User is calm and attentive - good opportunity for engagement"
	case "disgust":
		return fmt.Sprintf("User shows %s discomfort - check what's bothering them", state.Intensity)
	default:
		return "User's emotional state is nuanced - pay close attention"
	}
}

func generateInsights(current *store.UnifiedMetric, window []store.UnifiedMetric, state EmotionalState) []string {
	if current == nil {
		return []string{"Awaiting behavioral data for insights"}
	}
	var insights []string

	emotion := current.Emotion()
	switch emotion {
	case "sad", "fear", "angry":
		insights = append(insights, fmt.Sprintf(
			"User is experiencing %s with %s intensity - emotional support may be beneficial", emotion, state.Intensity))
	case "happy":
		insights = append(insights, "User is in a positive emotional state - great moment for meaningful connection")
	}

	switch state.Complexity {
	case "mixed":
		insights = append(insights, "User is showing mixed emotional signals - there may be underlying concerns")
	case "complex":
		insights = append(insights, "User's emotional state is complex - fatigue may be affecting their mood")
	}

	attention := current.Attention()
	if attention < 35 {
		insights = append(insights, "User attention is low - consider re-engaging or checking if they need a break")
	} else if attention > 80 {
		insights = append(insights, "User is highly focused - they're deeply engaged in the conversation")
	}

	fatigue := current.Fatigue()
	if fatigue == "Moderate" || fatigue == "Severe" {
		var level string
		if fatigue == "Moderate" {
			level = "moderate"
		} else {
			level = "severe"
		}
		insights = append(insights, fmt.Sprintf("User shows %s fatigue - shorter, gentler interactions recommended", level))
	}

	switch current.Engagement() {
	case "low":
		insights = append(insights, "Engagement is dropping - try asking an open question or changing topic")
	case "high":
		insights = append(insights, "User is highly engaged - they're invested in this conversation")
	}

	if len(window) >= 5 {
		recent := window[len(window)-5:]
		distinct := map[string]bool{}
		for _, m := range recent {
			distinct[m.Emotion()] = true
		}
		if len(distinct) >= 4 {
			insights = append(insights, "User's emotions have been variable - they may be processing complex feelings")
		}
	}

	if len(insights) == 0 {
		return []string{"User appears stable - continue with natural conversation flow"}
	}
	return insights
}

func generateRecommendations(state EmotionalState, trends Trends, patterns Patterns) []string {
	var recs []string

	switch state.PrimaryEmotion {
	case "sad":
		if state.EmpathyNeeded == "high" || state.EmpathyNeeded == "very_high" {
			recs = append(recs,
				"Lead with empathy - acknowledge their feelings before anything else",
				`Use validating phrases: "I can see you're going through something..."`)
		}
	case "angry":
		recs = append(recs,
			"Stay calm and don't match their frustration",
			"Let them express fully before responding")
	case "fear":
		recs = append(recs,
			"Be a steady, reassuring presence",
			"Break complex things into simple steps")
	case "happy":
		recs = append(recs,
			"Match their positive energy",
			"Ask about what's making them happy")
	}

	if state.Intensity == "strong" {
		recs = append(recs, "Give extra space for emotional expression")
	}

	switch trends.EmotionalArc {
	case "darkening":
		recs = append(recs, `Check in: "How are you feeling about all this?"`)
	case "brightening":
		recs = append(recs, "Acknowledge the positive shift you're seeing")
	}

	if patterns.PatternsDetected {
		if patterns.Summary.StressCount > 2 {
			recs = append(recs, "Multiple stress indicators detected - consider offering a break")
		}
		if patterns.Summary.EngagementDropsCount > 2 {
			recs = append(recs, "Engagement dropping - try a more engaging approach")
		}
	}

	if state.FatigueFactor {
		recs = append(recs, "User seems tired - keep responses concise and gentle")
	}

	if len(recs) == 0 {
		return []string{"Continue with your natural, empathetic approach"}
	}
	return recs
}

// Engine binds the pure analysis functions to the store.
type Engine struct {
	store *store.Store
	log   *zap.Logger
}

func NewEngine(s *store.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: s, log: log}
}

// ContextForSession fetches the latest metric and the trailing window for a
// session and builds the analytics context. A session with no rows at all
// still yields a well-formed neutral context.
func (e *Engine) ContextForSession(ctx context.Context, sessionID string, windowSeconds int, now time.Time) (*Context, error) {
	end := float64(now.UnixMilli()) / 1000.0
	start := end - float64(windowSeconds)

	current, err := e.store.GetLatest(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	window, err := e.store.GetRange(ctx, sessionID, start, end)
	if err != nil {
		return nil, err
	}
	// Latest metric older than the window still anchors the current state;
	// trends and patterns only see in-window rows.
	if current == nil && len(window) > 0 {
		current = &window[len(window)-1]
	}

	result := BuildContext(current, window)
	return &result, nil
}
