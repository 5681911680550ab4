package snapshot

import (
	"testing"

	"github.com/convei-labs/fusion/internal/store"
)

func TestCacheStateReplaceAndCopy(t *testing.T) {
	c := NewCache()
	if c.State() != nil {
		t.Error("fresh cache should have no state")
	}

	emotion := "happy"
	c.SetState(&store.UnifiedMetric{SessionID: "s1", UnifiedEmotion: &emotion})

	first := c.State()
	if first == nil || *first.UnifiedEmotion != "happy" {
		t.Fatalf("State() = %+v", first)
	}

	// Readers get copies: mutating one must not leak into the slot.
	first.SessionID = "tampered"
	if c.State().SessionID != "s1" {
		t.Error("reader mutation leaked into the cache")
	}

	sad := "sad"
	c.SetState(&store.UnifiedMetric{SessionID: "s2", UnifiedEmotion: &sad})
	if got := c.State(); got.SessionID != "s2" {
		t.Errorf("slot not replaced, got %+v", got)
	}
}

func TestCacheFrame(t *testing.T) {
	c := NewCache()
	if c.Frame() != nil {
		t.Error("fresh cache should have no frame")
	}

	c.SetFrame(&Frame{Data: "jpeg1", Timestamp: 1})
	c.SetFrame(&Frame{Data: "jpeg2", Timestamp: 2})

	f := c.Frame()
	if f == nil || f.Data != "jpeg2" || f.Timestamp != 2 {
		t.Errorf("Frame() = %+v, want latest", f)
	}
}
