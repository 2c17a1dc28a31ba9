package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// stubProcessor is a chain member with scriptable behavior.
type stubProcessor struct {
	name        string
	order       int
	types       []Type
	conditional func(ev *Event) bool
	process     func(ev *Event) error

	calls int
}

func (p *stubProcessor) Name() string { return p.name }

func (p *stubProcessor) Order() int { return p.order }

func (p *stubProcessor) EventTypes() []Type {
	if p.types == nil {
		return []Type{TypeCreate, TypeUpdate, TypeDelete}
	}
	return p.types
}

func (p *stubProcessor) Conditional(_ context.Context, ev *Event) bool {
	if p.conditional == nil {
		return true
	}
	return p.conditional(ev)
}

func (p *stubProcessor) Process(_ context.Context, ev *Event) error {
	p.calls++
	if p.process == nil {
		return nil
	}
	return p.process(ev)
}

type RegistrySuite struct {
	suite.Suite
	ctx context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
}

func newEvent(t Type) *Event {
	return &Event{ID: id.NewOperationID(), Type: t}
}

func (s *RegistrySuite) TestOrdering() {
	reg := NewRegistry()
	var order []string
	record := func(name string) *stubProcessor {
		return &stubProcessor{
			name:    name,
			process: func(*Event) error { order = append(order, name); return nil },
		}
	}

	last := record("last")
	last.order = 100
	first := record("first")
	first.order = -500
	middle := record("middle")
	middle.order = 0

	// Registration order must not matter.
	reg.Register(last)
	reg.Register(first)
	reg.Register(middle)

	_, err := reg.Process(s.ctx, newEvent(TypeCreate))
	s.Require().NoError(err)
	s.Equal([]string{"first", "middle", "last"}, order)
}

func (s *RegistrySuite) TestTypeAndConditionalFiltering() {
	reg := NewRegistry()
	deleteOnly := &stubProcessor{name: "delete-only", types: []Type{TypeDelete}}
	optOut := &stubProcessor{name: "opt-out", conditional: func(*Event) bool { return false }}
	always := &stubProcessor{name: "always"}
	reg.Register(deleteOnly)
	reg.Register(optOut)
	reg.Register(always)

	_, err := reg.Process(s.ctx, newEvent(TypeCreate))
	s.Require().NoError(err)

	s.Equal(0, deleteOnly.calls)
	s.Equal(0, optOut.calls)
	s.Equal(1, always.calls)
}

func (s *RegistrySuite) TestCloseShortCircuits() {
	reg := NewRegistry()
	closer := &stubProcessor{name: "closer", order: -1, process: func(ev *Event) error {
		ev.Close()
		return nil
	}}
	after := &stubProcessor{name: "after"}
	reg.Register(closer)
	reg.Register(after)

	_, err := reg.Process(s.ctx, newEvent(TypeUpdate))
	s.Require().NoError(err)
	s.Equal(1, closer.calls)
	s.Equal(0, after.calls, "close must starve the rest of the chain")
}

func (s *RegistrySuite) TestProcessorErrorAborts() {
	reg := NewRegistry()
	boom := errors.New("boom")
	failing := &stubProcessor{name: "failing", order: -1, process: func(*Event) error { return boom }}
	after := &stubProcessor{name: "after"}
	reg.Register(failing)
	reg.Register(after)

	_, err := reg.Process(s.ctx, newEvent(TypeCreate))
	s.Require().ErrorIs(err, boom)
	s.Contains(err.Error(), "failing")
	s.Equal(0, after.calls)
}

func (s *RegistrySuite) TestSuspendAndResume() {
	reg := NewRegistry()
	suspender := &stubProcessor{name: "suspender", order: -1, process: func(ev *Event) error {
		ev.Suspend()
		return nil
	}}
	after := &stubProcessor{name: "after"}
	reg.Register(suspender)
	reg.Register(after)

	token, err := reg.Process(s.ctx, newEvent(TypeCreate))
	s.Require().NoError(err)
	s.Require().NotEmpty(token)
	s.Equal(0, after.calls, "suspended event must not reach later processors")

	_, err = reg.Resume(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(1, after.calls, "resume continues after the suspending processor")
	s.Equal(1, suspender.calls, "the suspending processor does not run again")

	_, err = reg.Resume(s.ctx, token)
	s.Require().ErrorIs(err, sentinel.ErrNotFound, "a continuation is consumed by resume")
}

func TestMemoryContinuationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryContinuationStore()

	cont := &Continuation{Token: "tok", Event: newEvent(TypeCreate), NextIndex: 2}
	require.NoError(t, store.Save(ctx, cont))
	require.ErrorIs(t, store.Save(ctx, cont), sentinel.ErrConflict)

	taken, err := store.Take(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, 2, taken.NextIndex)

	_, err = store.Take(ctx, "tok")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
