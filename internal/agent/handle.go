package agent

import (
	"os/exec"
	"sync"
	"time"
)

type State string

const (
	StateRunning     State = "running"
	StateTerminating State = "terminating"
	StateExited      State = "exited"
	StateFailed      State = "failed"
	StateKilled      State = "killed"
)

// HandleInfo is a snapshot of one supervised agent.
type HandleInfo struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	RoomURL   string    `json:"room_url"`
	Vendor    string    `json:"vendor,omitempty"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	State     State     `json:"state"`
}

// Handle tracks one running agent process.
type Handle struct {
	id        string
	params    LaunchParams
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	done      chan struct{}

	mu     sync.Mutex
	state  State
	killed bool
	err    error
}

func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) PID() int {
	return h.pid
}

// Done is closed once the process has exited, been reaped and removed from
// the supervisor.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the exit error. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) Info() HandleInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HandleInfo{
		ID:        h.id,
		CallID:    h.params.CallID,
		RoomURL:   h.params.RoomURL,
		Vendor:    h.params.Vendor,
		PID:       h.pid,
		StartedAt: h.startedAt,
		State:     h.state,
	}
}

func (h *Handle) markTerminating() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateRunning {
		h.state = StateTerminating
	}
}

func (h *Handle) markKilled() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killed = true
}

func (h *Handle) finish(err error) State {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.err = err
	switch {
	case h.killed:
		h.state = StateKilled
	case err != nil:
		h.state = StateFailed
	default:
		h.state = StateExited
	}
	return h.state
}
