// Package projection holds the in-memory read model derived from the
// event log. It is a cache, never a source of truth: the maps are a
// pure function of (snapshot, replayed events) and can be rebuilt at
// any time.
package projection

import (
	"sync"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/store"
)

// State is the mutable reducer state: current todos keyed by entity id
// and current daily logs keyed by date. Only registered handlers may
// write into these maps.
type State struct {
	Todos map[string]model.Todo
	Logs  map[string]model.DailyLog
}

// Handler is a reducer applying one event to the state.
type Handler func(st *State, ev model.Event)

// Projection is the read model. All access is serialized through its
// lock so a write's effect is visible to the very next read, and so a
// snapshot rebuild plus pending replay runs without interleaving.
type Projection struct {
	mu       sync.RWMutex
	handlers map[model.EventType]Handler
	state    State
}

// New creates an empty projection with no handlers registered.
func New() *Projection {
	return &Projection{
		handlers: make(map[model.EventType]Handler),
		state: State{
			Todos: make(map[string]model.Todo),
			Logs:  make(map[string]model.DailyLog),
		},
	}
}

// Register associates a reducer with an event type. Every repository
// adapter must register its reducers before any event is applied or
// replayed. Registering twice replaces the handler.
func (p *Projection) Register(t model.EventType, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[t] = h
}

// Apply runs the handler for ev's type. Unknown event types are
// silently ignored so events from a newer device are a forward-
// compatible no-op rather than an error.
func (p *Projection) Apply(ev model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apply(ev)
}

// ApplyAll applies events in the given order. Ordering is the caller's
// responsibility: events must arrive in ascending id order.
func (p *Projection) ApplyAll(events []model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range events {
		p.apply(ev)
	}
}

// LoadFromSnapshot discards all current state and reseeds it from the
// snapshot. Destructive: any applied-but-unsnapshotted event is lost
// unless the caller replays it afterwards (see Rebuild).
func (p *Projection) LoadFromSnapshot(snap *store.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadFromSnapshot(snap)
}

// Rebuild reseeds from the snapshot and replays the still-pending
// events under a single critical section. pending is invoked while the
// lock is held: a concurrent write either lands before the read and is
// replayed onto the new baseline, or its Apply serializes after the
// rebuild. Neither ordering can lose it to the cleared state.
func (p *Projection) Rebuild(snap *store.Snapshot, pending func() ([]model.Event, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	events, err := pending()
	if err != nil {
		return err
	}
	p.loadFromSnapshot(snap)
	for _, ev := range events {
		p.apply(ev)
	}
	return nil
}

func (p *Projection) apply(ev model.Event) {
	if h, ok := p.handlers[ev.Type]; ok {
		h(&p.state, ev)
	}
}

func (p *Projection) loadFromSnapshot(snap *store.Snapshot) {
	p.state.Todos = make(map[string]model.Todo, len(snap.Todos))
	p.state.Logs = make(map[string]model.DailyLog, len(snap.Logs))
	for _, t := range snap.Todos {
		p.state.Todos[t.ID] = t
	}
	for _, l := range snap.Logs {
		p.state.Logs[l.Date] = l
	}
}

// Todo returns the todo stored under id.
func (p *Projection) Todo(id string) (model.Todo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.state.Todos[id]
	return t, ok
}

// Todos returns a copy of all current todos in unspecified order.
func (p *Projection) Todos() []model.Todo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	todos := make([]model.Todo, 0, len(p.state.Todos))
	for _, t := range p.state.Todos {
		todos = append(todos, t)
	}
	return todos
}

// Log returns the daily log stored under date.
func (p *Projection) Log(date string) (model.DailyLog, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l, ok := p.state.Logs[date]
	return l, ok
}

// Logs returns a copy of all current daily logs in unspecified order.
func (p *Projection) Logs() []model.DailyLog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	logs := make([]model.DailyLog, 0, len(p.state.Logs))
	for _, l := range p.state.Logs {
		logs = append(logs, l)
	}
	return logs
}
