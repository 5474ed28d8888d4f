package wavestep

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cbegin/wavestep-go/internal/osc"
)

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvalidSteps  = errors.New("steps must be a positive number")
)

// Player is a frozen waveform: the components and preview samples captured
// when it was committed, plus how long it sounds during playback.
type Player struct {
	ID      int
	Label   string
	Steps   float64
	Waves   []osc.Component
	Samples []float64
}

func (p Player) clone() Player {
	p.Waves = slices.Clone(p.Waves)
	p.Samples = slices.Clone(p.Samples)
	return p
}

// PlayerList is the ordered playback sequence.
type PlayerList struct {
	players []Player
}

func (l *PlayerList) Len() int { return len(l.players) }

// All returns deep copies of every player in order.
func (l *PlayerList) All() []Player {
	out := make([]Player, len(l.players))
	for i, p := range l.players {
		out[i] = p.clone()
	}
	return out
}

func (l *PlayerList) Get(id int) (Player, bool) {
	i := l.index(id)
	if i < 0 {
		return Player{}, false
	}
	return l.players[i].clone(), true
}

func (l *PlayerList) index(id int) int {
	return slices.IndexFunc(l.players, func(p Player) bool { return p.ID == id })
}

func (l *PlayerList) append(p Player) { l.players = append(l.players, p) }

func (l *PlayerList) replace(ps []Player) { l.players = ps }

func (l *PlayerList) Remove(id int) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownPlayer)
	}
	l.players = slices.Delete(l.players, i, i+1)
	return nil
}

// Move takes the player at index from and reinserts it at index to.
func (l *PlayerList) Move(from, to int) error {
	n := len(l.players)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d -> %d: index out of range [0, %d)", from, to, n)
	}
	p := l.players[from]
	l.players = slices.Delete(l.players, from, from+1)
	l.players = slices.Insert(l.players, to, p)
	return nil
}

func (l *PlayerList) SetSteps(id int, steps float64) error {
	if !(steps > 0) || math.IsInf(steps, 0) {
		return fmt.Errorf("set steps %v: %w", steps, ErrInvalidSteps)
	}
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("set steps on %d: %w", id, ErrUnknownPlayer)
	}
	l.players[i].Steps = steps
	return nil
}

func (l *PlayerList) SetLabel(id int, label string) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("set label on %d: %w", id, ErrUnknownPlayer)
	}
	l.players[i].Label = label
	return nil
}
