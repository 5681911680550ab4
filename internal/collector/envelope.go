package collector

import "encoding/json"

// Envelope is the tagged union the sensing process emits over the live
// channel. Unrecognized types are ignored, not errors.
type Envelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

const (
	typeVideoAnalysis = "video_analysis"
	typeAudioAnalysis = "audio_analysis"
	typeUnifiedState  = "unified_state"
	typeVideoFrame    = "video_frame"
)

// requestData is the control message sent on connect to prompt an
// immediate unified_state reply.
var requestData = []byte(`{"type":"request_data"}`)

func parseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}

// The payload maps are loosely typed: producers vary key names and some
// fields arrive nested. These helpers read leniently, returning nil when
// no candidate key holds a usable value.

func getString(m map[string]any, keys ...string) *string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}

func getFloat(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		}
	}
	return nil
}

func getInt(m map[string]any, keys ...string) *int64 {
	if f := getFloat(m, keys...); f != nil {
		n := int64(*f)
		return &n
	}
	return nil
}

func getMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

func getFloatMap(m map[string]any, key string) map[string]float64 {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out
}

func getMapSlice(m map[string]any, keys ...string) []map[string]any {
	for _, k := range keys {
		raw, ok := m[k].([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if mm, ok := item.(map[string]any); ok {
				out = append(out, mm)
			}
		}
		return out
	}
	return nil
}
