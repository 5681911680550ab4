package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/convei-labs/fusion/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
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
	return handle
}

func TestEmitAndList(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	if err := Emit(ctx, database, "live_channel_connected", "s1", nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := Emit(ctx, database, "metric_dropped", "s1", map[string]any{"kind": "unified"}); err != nil {
		t.Fatalf("Emit with payload: %v", err)
	}
	if err := Emit(ctx, database, "collector_stopped", "", nil); err != nil {
		t.Fatalf("Emit without session: %v", err)
	}

	events, err := List(ctx, database, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	// Sequence numbers are strictly increasing.
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Errorf("seq not increasing: %d then %d", events[i-1].Seq, events[i].Seq)
		}
	}

	if events[0].Type != "live_channel_connected" || events[0].SessionID == nil {
		t.Errorf("event[0] = %+v", events[0])
	}
	if events[1].Payload == nil {
		t.Error("payload lost on round trip")
	}
	if events[2].SessionID != nil {
		t.Error("empty session id should store as NULL")
	}

	// Pagination picks up after a sequence number.
	tail, err := List(ctx, database, events[1].Seq, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0].Seq != events[2].Seq {
		t.Errorf("tail = %+v", tail)
	}
}

func TestEmitRequiresType(t *testing.T) {
	database := openTestDB(t)
	if err := Emit(context.Background(), database, "", "s1", nil); err == nil {
		t.Error("empty type should be rejected")
	}
}

func TestEmitHonorsContext(t *testing.T) {
	database := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Emit(ctx, database, "live_channel_connected", "s1", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Emit with cancelled context = %v, want context.Canceled", err)
	}
}
