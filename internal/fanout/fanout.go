// Package fanout pushes the latest derived state to all connected
// dashboard consumers on fixed cadences: state data at 10 Hz, video
// frames at roughly 30 Hz, independently scheduled.
package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/snapshot"
)

// Message is one event pushed to subscribers.
type Message struct {
	Event string
	Data  []byte
}

// Broadcaster fans messages out to subscriber channels. Sends never
// block: a subscriber that cannot keep up loses the tick, which is
// acceptable for realtime state.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Message]struct{}
	log  *zap.Logger
}

func NewBroadcaster(log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		subs: make(map[chan Message]struct{}),
		log:  log.Named("fanout"),
	}
}

// Subscribe registers a consumer. The returned cancel func must be called
// when the consumer goes away.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Message, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers to every subscriber that has buffer room. Slow
// subscribers are skipped, logged, and caught up on the next tick.
func (b *Broadcaster) Publish(event string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			b.log.Debug("dropping tick for slow subscriber", zap.String("event", event))
		}
	}
}

// SubscriberCount reports connected consumers, for the status surface.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Loop drives the two push cadences off the snapshot cache.
type Loop struct {
	cache   *snapshot.Cache
	states  *Broadcaster
	frames  *Broadcaster
	stateHz int
	frameHz int
	log     *zap.Logger
}

func NewLoop(cache *snapshot.Cache, states, frames *Broadcaster, stateHz, frameHz int, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	if stateHz <= 0 {
		stateHz = 10
	}
	if frameHz <= 0 {
		frameHz = 30
	}
	return &Loop{
		cache:   cache,
		states:  states,
		frames:  frames,
		stateHz: stateHz,
		frameHz: frameHz,
		log:     log.Named("fanout"),
	}
}

// Run ticks until ctx is cancelled. A failed or empty tick is skipped,
// never retried: the next tick supersedes it anyway.
func (l *Loop) Run(ctx context.Context) error {
	stateTick := time.NewTicker(time.Second / time.Duration(l.stateHz))
	defer stateTick.Stop()
	frameTick := time.NewTicker(time.Second / time.Duration(l.frameHz))
	defer frameTick.Stop()

	l.log.Info("fanout loops starting",
		zap.Int("state_hz", l.stateHz),
		zap.Int("frame_hz", l.frameHz))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stateTick.C:
			l.pushState()
		case <-frameTick.C:
			l.pushFrame()
		}
	}
}

func (l *Loop) pushState() {
	state := l.cache.State()
	if state == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		l.log.Debug("failed to marshal state tick", zap.Error(err))
		return
	}
	l.states.Publish("state", data)
}

func (l *Loop) pushFrame() {
	frame := l.cache.Frame()
	if frame == nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		l.log.Debug("failed to marshal frame tick", zap.Error(err))
		return
	}
	l.frames.Publish("frame", data)
}
