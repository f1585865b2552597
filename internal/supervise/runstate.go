package supervise

import "fmt"

// Phase is the coarse lifecycle phase of a managed process.
type Phase string

const (
	PhaseStopped  Phase = "stopped"
	PhaseStarting Phase = "starting"
	PhaseRunning  Phase = "running"
	PhaseExited   Phase = "exited"
	PhaseFailed   Phase = "failed"
)

// RunState is the process controller's view of one service. ExitCode is only
// meaningful for PhaseExited and PhaseFailed.
type RunState struct {
	Phase    Phase
	ExitCode int
	PID      int
	Detail   string
}

// Running reports whether the process is up.
func (s RunState) Running() bool {
	return s.Phase == PhaseRunning
}

// ExitedOK reports whether a one-shot process ran to successful completion.
func (s RunState) ExitedOK() bool {
	return s.Phase == PhaseExited && s.ExitCode == 0
}

// Terminal reports whether the process is in a state it will not leave on its
// own (supervisord autorestart aside).
func (s RunState) Terminal() bool {
	return s.Phase == PhaseExited || s.Phase == PhaseFailed
}

func (s RunState) String() string {
	switch s.Phase {
	case PhaseExited, PhaseFailed:
		return fmt.Sprintf("%s(%d)", s.Phase, s.ExitCode)
	case PhaseRunning:
		return fmt.Sprintf("%s(pid %d)", s.Phase, s.PID)
	default:
		return string(s.Phase)
	}
}
