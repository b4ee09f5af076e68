package workflow

// Fields is the opaque output payload of one step.
type Fields map[string]any

// Delta is the observable unit of progress: one executed step's name and
// output. Exactly one Delta exists per executed step, in execution order.
type Delta struct {
	Step   string
	Fields Fields
}

// State holds one run's execution state as an append-only mapping from
// step name to that step's output fields. The executor performs all
// writes; a step can only ever contribute its own entry, so steps are
// isolated by construction.
//
// State is exclusively owned by a single run. There is no concurrency
// within a run, so no locking.
type State struct {
	order  []string
	deltas map[string]Fields
}

// NewState creates an empty run state.
func NewState() *State {
	return &State{deltas: make(map[string]Fields)}
}

// Get returns the named step's output and whether that step has run.
func (s *State) Get(step string) (Fields, bool) {
	f, ok := s.deltas[step]
	return f, ok
}

// Ran reports whether the named step executed.
func (s *State) Ran(step string) bool {
	_, ok := s.deltas[step]
	return ok
}

// Value returns one field of a step's output.
func (s *State) Value(step, key string) (any, bool) {
	f, ok := s.deltas[step]
	if !ok {
		return nil, false
	}
	v, ok := f[key]
	return v, ok
}

// String returns a string field, or "" if absent or not a string.
func (s *State) String(step, key string) string {
	v, ok := s.Value(step, key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Bool returns a bool field, or false if absent or not a bool.
func (s *State) Bool(step, key string) bool {
	v, ok := s.Value(step, key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Steps returns the executed step names in execution order.
func (s *State) Steps() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// set appends one step's delta. Only the executor calls this; a second
// write to the same step name violates the append-only contract.
func (s *State) set(step string, fields Fields) error {
	if _, ok := s.deltas[step]; ok {
		return &DuplicateStepError{Step: step}
	}
	s.deltas[step] = fields
	s.order = append(s.order, step)
	return nil
}
