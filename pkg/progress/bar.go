package progress

import (
	"strings"
	"sync"
)

type Status int

const (
	InProgress Status = iota
	Done
	Halted
	Failed
)

func (s Status) String() string {
	switch s {
	case Done:
		return "DONE"
	case Halted:
		return "HALT"
	case Failed:
		return "ERROR"
	}
	return ""
}

// Terminal reports whether the entity will not change anymore.
func (s Status) Terminal() bool { return s != InProgress }

// Entity is one line of a progress display.
type Entity struct {
	Caption string
	// Value is the latest progress text, empty until the first update.
	Value  string
	Status Status
}

func (e Entity) String() string {
	value := e.Value
	if value == "" {
		value = "?"
	}
	if e.Status == InProgress {
		return e.Caption + ": " + value
	}
	return e.Caption + ": " + value + " - " + e.Status.String()
}

// Bar tracks a fixed set of entities. It is safe for concurrent use so that
// workers can update their own entity while the owner renders.
type Bar struct {
	mu       sync.Mutex
	entities []Entity
}

func NewBar(captions ...string) *Bar {
	b := &Bar{entities: make([]Entity, len(captions))}
	for i, c := range captions {
		b.entities[i].Caption = c
	}
	return b
}

func (b *Bar) Len() int { return len(b.entities) }

// Update sets the progress text of entity i unless it already finished.
func (b *Bar) Update(i int, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.entities[i].Status.Terminal() {
		return
	}
	b.entities[i].Value = value
}

// Done marks entity i as finished. An errored entity stays errored.
func (b *Bar) Done(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.entities[i].Status != Failed {
		b.entities[i].Status = Done
	}
}

// Halt marks entity i as stopped before finishing.
func (b *Bar) Halt(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.entities[i].Status != Failed {
		b.entities[i].Status = Halted
	}
}

// Error marks entity i as failed, and every other entity as halted when
// haltOthers is set.
func (b *Bar) Error(i int, haltOthers bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if haltOthers {
		for j := range b.entities {
			b.entities[j].Status = Halted
		}
	}
	b.entities[i].Status = Failed
}

// Completed reports whether every entity reached a terminal status.
func (b *Bar) Completed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entities {
		if !e.Status.Terminal() {
			return false
		}
	}
	return true
}

// Entities returns a snapshot of the entities.
func (b *Bar) Entities() []Entity {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entity, len(b.entities))
	copy(out, b.entities)
	return out
}

// String renders one line per entity.
func (b *Bar) String() string {
	entities := b.Entities()
	lines := make([]string, len(entities))
	for i, e := range entities {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}
