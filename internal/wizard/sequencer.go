package wizard

// Step is one page of a wizard. Valid gates forward progress; a nil Valid
// means the step is always complete.
type Step struct {
	Name  string
	Valid func() bool
}

type Move int

const (
	// MoveBlocked means the current step is incomplete and nothing changed.
	MoveBlocked Move = iota
	// MoveAdvanced means the sequencer moved forward one step.
	MoveAdvanced
	// MoveSubmit means Next was pressed on a complete final step. The
	// sequencer does not move; the caller submits.
	MoveSubmit
)

func (m Move) String() string {
	switch m {
	case MoveBlocked:
		return "blocked"
	case MoveAdvanced:
		return "advanced"
	case MoveSubmit:
		return "submit"
	}
	return "unknown"
}

// Sequencer walks a fixed, ordered list of steps one at a time. Steps are
// numbered from 1.
type Sequencer struct {
	steps   []Step
	current int
}

func NewSequencer(steps ...Step) *Sequencer {
	return &Sequencer{steps: steps, current: 1}
}

func (s *Sequencer) Current() int {
	return s.current
}

func (s *Sequencer) Len() int {
	return len(s.steps)
}

func (s *Sequencer) CurrentStep() Step {
	return s.steps[s.current-1]
}

func (s *Sequencer) IsFirst() bool {
	return s.current == 1
}

func (s *Sequencer) IsLast() bool {
	return s.current == len(s.steps)
}

// CanAdvance reports whether the forward control should be enabled.
func (s *Sequencer) CanAdvance() bool {
	if len(s.steps) == 0 {
		return false
	}

	step := s.CurrentStep()
	if step.Valid == nil {
		return true
	}
	return step.Valid()
}

func (s *Sequencer) Next() Move {
	if !s.CanAdvance() {
		return MoveBlocked
	}

	if s.IsLast() {
		return MoveSubmit
	}

	s.current++
	return MoveAdvanced
}

// Back retreats one step. It is a no-op on the first step.
func (s *Sequencer) Back() {
	if !s.IsFirst() {
		s.current--
	}
}

func (s *Sequencer) Reset() {
	s.current = 1
}
