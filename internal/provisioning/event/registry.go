package event

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"idsync/pkg/platform/sentinel"
)

// Processor reacts to events of its declared types. Lower order runs first;
// Conditional lets a processor opt out per event without consuming a slot in
// the chain.
type Processor interface {
	Name() string
	EventTypes() []Type
	Order() int
	Conditional(ctx context.Context, ev *Event) bool
	Process(ctx context.Context, ev *Event) error
}

// Continuation is the persisted state of a suspended event: enough to resume
// the chain from the processor after the one that suspended it.
type Continuation struct {
	Token     string
	Event     *Event
	NextIndex int
}

// ContinuationStore persists suspended events between the suspend and resume
// entry points.
type ContinuationStore interface {
	Save(ctx context.Context, cont *Continuation) error
	Take(ctx context.Context, token string) (*Continuation, error)
}

// Registry is the startup-time processor chain: processors are registered
// once, sorted by ascending order (registration order breaks ties, so the
// chain is stable across runs of the same deployment).
type Registry struct {
	mu            sync.RWMutex
	processors    []Processor
	continuations ContinuationStore
	logger        *slog.Logger
}

type RegistryOption func(*Registry)

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

func WithContinuationStore(store ContinuationStore) RegistryOption {
	return func(r *Registry) { r.continuations = store }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		continuations: NewMemoryContinuationStore(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a processor to the chain. Called during wiring, before any
// event is processed.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors = append(r.processors, p)
	sort.SliceStable(r.processors, func(i, j int) bool {
		return r.processors[i].Order() < r.processors[j].Order()
	})
}

// Process walks the chain for ev. Returns the suspension token when a
// processor suspends the event, "" otherwise. A processor error aborts the
// remaining chain and surfaces to the caller.
func (r *Registry) Process(ctx context.Context, ev *Event) (string, error) {
	return r.processFrom(ctx, ev, 0)
}

// Resume continues a previously suspended event identified by its token. The
// continuation is consumed: resuming twice fails with not-found.
func (r *Registry) Resume(ctx context.Context, token string) (string, error) {
	cont, err := r.continuations.Take(ctx, token)
	if err != nil {
		return "", fmt.Errorf("take continuation %s: %w", token, err)
	}
	cont.Event.suspended = false
	return r.processFrom(ctx, cont.Event, cont.NextIndex)
}

func (r *Registry) processFrom(ctx context.Context, ev *Event, start int) (string, error) {
	r.mu.RLock()
	chain := make([]Processor, len(r.processors))
	copy(chain, r.processors)
	r.mu.RUnlock()

	if ev.Suspended() {
		return "", sentinel.ErrInvalidState
	}

	for i := start; i < len(chain); i++ {
		p := chain[i]
		if !handlesType(p, ev.Type) || !p.Conditional(ctx, ev) {
			continue
		}

		if err := p.Process(ctx, ev); err != nil {
			return "", fmt.Errorf("processor %s: %w", p.Name(), err)
		}

		if ev.Closed() {
			r.logger.DebugContext(ctx, "event chain closed",
				"processor", p.Name(), "event_type", string(ev.Type))
			return "", nil
		}
		if ev.Suspended() {
			token := uuid.NewString()
			cont := &Continuation{Token: token, Event: ev, NextIndex: i + 1}
			if err := r.continuations.Save(ctx, cont); err != nil {
				return "", fmt.Errorf("save continuation: %w", err)
			}
			r.logger.InfoContext(ctx, "event suspended",
				"processor", p.Name(), "event_type", string(ev.Type), "token", token)
			return token, nil
		}
	}
	return "", nil
}

func handlesType(p Processor, t Type) bool {
	for _, handled := range p.EventTypes() {
		if handled == t {
			return true
		}
	}
	return false
}

// MemoryContinuationStore keeps suspended events in process memory.
type MemoryContinuationStore struct {
	mu    sync.Mutex
	conts map[string]*Continuation
}

func NewMemoryContinuationStore() *MemoryContinuationStore {
	return &MemoryContinuationStore{conts: make(map[string]*Continuation)}
}

func (s *MemoryContinuationStore) Save(_ context.Context, cont *Continuation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conts[cont.Token]; exists {
		return sentinel.ErrConflict
	}
	s.conts[cont.Token] = cont
	return nil
}

func (s *MemoryContinuationStore) Take(_ context.Context, token string) (*Continuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cont, ok := s.conts[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.conts, token)
	return cont, nil
}
