// Package fsm evaluates table-driven state machines. A table is scanned in
// declared order and the first entry whose From matches the current state
// and whose Guard holds is taken. At most one transition fires per Update.
package fsm

// State identifies a machine state. Negative values are reserved for End.
type State int

// End terminates a table early when used as a From value.
const End State = -1

// Transition is one table row. A nil Guard always holds; Action may be nil.
type Transition[P any] struct {
	From   State
	Guard  func(P) bool
	To     State
	Action func(P)
}

// Machine holds the current state and an immutable table.
type Machine[P any] struct {
	cur   State
	table []Transition[P]
}

func New[P any](initial State, table []Transition[P]) *Machine[P] {
	t := make([]Transition[P], len(table))
	copy(t, table)
	return &Machine[P]{cur: initial, table: t}
}

func (m *Machine[P]) State() State { return m.cur }

// Update fires the first matching transition and reports it. When nothing
// matches the state is unchanged.
func (m *Machine[P]) Update(p P) (Transition[P], bool) {
	for _, tr := range m.table {
		if tr.From < 0 {
			break
		}
		if tr.From != m.cur {
			continue
		}
		if tr.Guard != nil && !tr.Guard(p) {
			continue
		}
		m.cur = tr.To
		if tr.Action != nil {
			tr.Action(p)
		}
		return tr, true
	}
	return Transition[P]{}, false
}
