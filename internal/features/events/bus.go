package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"giveaway-miniapp/internal/common/logger"
)

// Publisher is what the core depends on.
type Publisher interface {
	Publish(e Event)
}

// Sink forwards events outside the process. Errors are logged by the bus.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

type Handler func(Event)

const defaultSinkBuffer = 1024

// Bus delivers events to in-process subscribers synchronously and to sinks
// from a background loop (see Run), so slow brokers never stall a join.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]Handler
	nextID uint64

	sinks  []Sink
	queue  chan Event
	logger zerolog.Logger
}

func NewBus(sinks ...Sink) *Bus {
	return &Bus{
		subs:   make(map[uint64]Handler),
		sinks:  sinks,
		queue:  make(chan Event, defaultSinkBuffer),
		logger: logger.With("events"),
	}
}

// Subscribe registers h and returns a function removing it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}

	if len(b.sinks) == 0 {
		return
	}
	select {
	case b.queue <- e:
	default:
		b.logger.Warn().Str("kind", string(e.Kind)).Str("user_id", e.UserID).Msg("Sink queue full, event dropped")
	}
}

// Run forwards queued events to sinks until ctx is done, then drains what is left.
func (b *Bus) Run(ctx context.Context) {
	if len(b.sinks) == 0 {
		<-ctx.Done()
		return
	}
	b.logger.Info().Int("sinks", len(b.sinks)).Msg("Starting event sink loop")
	for {
		select {
		case <-ctx.Done():
			b.drain()
			b.logger.Info().Msg("Stopping event sink loop")
			return
		case e := <-b.queue:
			b.write(ctx, e)
		}
	}
}

func (b *Bus) drain() {
	ctx := context.Background()
	for {
		select {
		case e := <-b.queue:
			b.write(ctx, e)
		default:
			return
		}
	}
}

func (b *Bus) write(ctx context.Context, e Event) {
	for _, s := range b.sinks {
		if err := s.Write(ctx, e); err != nil {
			b.logger.Error().Err(err).Str("sink", s.Name()).Str("kind", string(e.Kind)).Msg("Failed to forward event")
		}
	}
}
