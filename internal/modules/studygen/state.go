package studygen

import (
	"fmt"
	"sync"
	"time"
)

type State string

const (
	StateIdle                State = "idle"
	StateFetchingPreferences State = "fetching_preferences"
	StateClassifying         State = "classifying"
	StatePlanning            State = "planning"
	StatePersistingStudy     State = "persisting_study"
	StateExpandingUnits      State = "expanding_units"
	StatePersistingUnits     State = "persisting_units"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
)

var transitions = map[State][]State{
	StateIdle:                {StateFetchingPreferences, StateFailed},
	StateFetchingPreferences: {StateClassifying, StateFailed},
	StateClassifying:         {StatePlanning, StateFailed},
	StatePlanning:            {StatePersistingStudy, StateFailed},
	StatePersistingStudy:     {StateExpandingUnits, StateFailed},
	StateExpandingUnits:      {StatePersistingUnits, StateFailed},
	StatePersistingUnits:     {StateCompleted, StateFailed},
}

func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// BeforeStudy reports whether no durable content can exist yet in state s. Failures
// in these states leave zero rows behind.
func (s State) BeforeStudy() bool {
	switch s {
	case StateIdle, StateFetchingPreferences, StateClassifying, StatePlanning, StatePersistingStudy:
		return true
	default:
		return false
	}
}

func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Transition struct {
	From State
	To   State
	At   time.Time
}

// Machine tracks a run's state. Illegal transitions are returned as errors and
// leave the state unchanged.
type Machine struct {
	mu      sync.Mutex
	state   State
	entered time.Time
	history []Transition
	now     func() time.Time
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle, entered: time.Now(), now: time.Now}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to next and returns how long the previous state lasted.
func (m *Machine) Transition(next State) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !CanTransition(m.state, next) {
		return 0, fmt.Errorf("illegal state transition %s -> %s", m.state, next)
	}
	at := m.now()
	spent := at.Sub(m.entered)
	m.history = append(m.history, Transition{From: m.state, To: next, At: at})
	m.state = next
	m.entered = at
	return spent, nil
}

func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transition(nil), m.history...)
}
