package analytics

// Guidance is a deterministic conversational playbook keyed on the
// classified emotion, adjusted by intensity and arc.
type Guidance struct {
	Approach   string   `json:"approach"`
	Tone       string   `json:"tone"`
	Pace       string   `json:"pace"`
	Techniques []string `json:"techniques"`
	Avoid      []string `json:"avoid"`
}

var guidanceTemplates = map[string]Guidance{
	"sad": {
		Approach: "supportive",
		Tone:     "gentle",
		Pace:     "slow",
		Techniques: []string{
			"Validate feelings first",
			`Use phrases like "I can see..." or "It sounds like..."`,
			"Give space for silence",
			"Ask open questions gently",
		},
		Avoid: []string{
			"Rushing to solutions",
			"Minimizing their feelings",
			"Being overly cheerful",
		},
	},
	"angry": {
		Approach: "calm_presence",
		Tone:     "understanding",
		Pace:     "measured",
		Techniques: []string{
			"Acknowledge frustration immediately",
			`Use "I understand" statements`,
			"Let them vent if needed",
			"Find common ground",
		},
		Avoid: []string{
			"Defensive responses",
			"Matching their anger",
			"Dismissing concerns",
		},
	},
	"fear": {
		Approach: "reassuring",
		Tone:     "steady",
		Pace:     "calm",
		Techniques: []string{
			"Break things into small steps",
			"Provide clear information",
			"Offer consistent support",
			"Use grounding language",
		},
		Avoid: []string{
			"Adding complexity",
			"Dismissing fears",
			"Overwhelming with information",
		},
	},
	"happy": {
		Approach: "celebratory",
		Tone:     "enthusiastic",
		Pace:     "energetic",
		Techniques: []string{
			"Match their energy",
			"Celebrate with them",
			"Ask follow-up questions",
			"Share in their joy",
		},
		Avoid: []string{
			"Being too reserved",
			"Changing subject abruptly",
		},
	},
	"surprise": {
		Approach: "curious",
		Tone:     "engaged",
		Pace:     "responsive",
		Techniques: []string{
			"Explore what surprised them",
			"Show genuine interest",
			"Give them time to process",
		},
	},
}

// GenerateGuidance is a pure function of (emotion, intensity, arc).
func GenerateGuidance(state EmotionalState, trends Trends) Guidance {
	g, ok := guidanceTemplates[state.PrimaryEmotion]
	if !ok {
		g = Guidance{Approach: "neutral", Tone: "warm", Pace: "normal"}
	}
	// Copy so appends never mutate the shared templates.
	techniques := append([]string(nil), g.Techniques...)
	avoid := append([]string(nil), g.Avoid...)

	if state.Intensity == "strong" {
		techniques = append(techniques,
			"Give extra space for expression",
			"Respond with heightened empathy")
	}
	switch trends.EmotionalArc {
	case "brightening":
		techniques = append(techniques, "Note and acknowledge the positive shift")
	case "darkening":
		techniques = append(techniques, "Gently check in on how they're doing")
	}

	g.Techniques = techniques
	g.Avoid = avoid
	return g
}
