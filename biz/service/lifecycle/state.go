package lifecycle

// State is a step of a single submission.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateUploadingBlob
	StateWritingRecord
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateUploadingBlob:
		return "uploading_blob"
	case StateWritingRecord:
		return "writing_record"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition is reported to the observer on every state change.
type Transition struct {
	Op   string
	From State
	To   State
	Err  error
}

type submission struct {
	op       string
	state    State
	observer func(Transition)
}

func (s *submission) to(next State) {
	s.move(next, nil)
}

// fail enters the absorbing Failed state and returns err unchanged.
func (s *submission) fail(err error) error {
	s.move(StateFailed, err)
	return err
}

func (s *submission) move(next State, err error) {
	prev := s.state
	s.state = next
	if s.observer != nil {
		s.observer(Transition{Op: s.op, From: prev, To: next, Err: err})
	}
}
