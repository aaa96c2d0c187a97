// Package event carries the simulation's notifications: money movements,
// day rollovers, maturity and breeding transitions, milestones and game
// endings. A Bus fans events out to channel subscribers and keeps a
// bounded log of the most recent ones for catch-up reads.
package event

import "sync"

type Type string

const (
	TypeMoneyChanged  Type = "money_changed"
	TypeDayAdvanced   Type = "day_advanced"
	TypeCropMatured   Type = "crop_matured"
	TypeAnimalMatured Type = "animal_matured"
	TypeAnimalBred    Type = "animal_bred"
	TypeMilestone     Type = "milestone_reached"
	TypeGameWon       Type = "game_won"
	TypeGameLost      Type = "game_lost"
	TypeTick          Type = "tick"
)

type Event struct {
	Day      int    `json:"day"`
	Type     Type   `json:"type"`
	Message  string `json:"message"`
	Amount   int64  `json:"amount,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
}

const (
	// logKeep bounds the catch-up log so long sessions stay flat.
	logKeep = 1000
	// subBuffer is each subscriber's channel depth. A subscriber that
	// falls further behind loses events instead of stalling the engine.
	subBuffer = 64
)

// Bus is owned by the game session. A nil *Bus accepts publishes and drops
// them, so wiring code can leave it unset in tests.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	log    []Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish fans e out to all subscribers and appends it to the recent log.
// Tick events are delivered live but never logged.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.Type != TypeTick {
		b.log = append(b.log, e)
		if len(b.log) > logKeep {
			b.log = b.log[len(b.log)-logKeep:]
		}
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a listener and returns its id and receive channel.
func (b *Bus) Subscribe() (int, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan Event, subBuffer)
	b.subs[b.nextID] = ch
	return b.nextID, ch
}

// Unsubscribe removes a listener and closes its channel. Unknown ids are
// ignored.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Recent returns up to n of the most recent logged events, oldest first.
// n <= 0 returns the whole log.
func (b *Bus) Recent(n int) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.log) {
		n = len(b.log)
	}
	out := make([]Event, n)
	copy(out, b.log[len(b.log)-n:])
	return out
}

// Restore replaces the log with previously saved events, trimming to the
// usual bound. Used when resuming a persisted game.
func (b *Bus) Restore(events []Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = append(b.log[:0:0], events...)
	if len(b.log) > logKeep {
		b.log = b.log[len(b.log)-logKeep:]
	}
}
