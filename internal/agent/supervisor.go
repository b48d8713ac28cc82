package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"q-pipecat/internal/observability"

	"github.com/google/uuid"
)

var (
	ErrCapacity     = errors.New("agent capacity reached")
	ErrShuttingDown = errors.New("supervisor is shutting down")
)

// SupervisorConfig holds configuration for the agent supervisor.
type SupervisorConfig struct {
	// Command is the agent binary and any leading arguments. Call arguments are appended.
	Command []string

	// Env is appended to the service environment for every agent.
	Env []string

	// MaxAgents caps concurrently running agents. Zero means unlimited.
	MaxAgents int

	// DrainTimeout is how long Shutdown waits after SIGTERM before killing agents.
	DrainTimeout time.Duration

	// OnFailure, when set, runs after an agent exits with an error and before
	// its handle reports done.
	OnFailure func(ctx context.Context, params LaunchParams)
}

// DefaultSupervisorConfig returns sensible defaults for a supervisor.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Command:      []string{"./bin/bot"},
		DrainTimeout: 30 * time.Second,
	}
}

// LaunchParams are the per-call arguments handed to an agent process.
type LaunchParams struct {
	RoomURL    string
	Token      string
	CallID     string
	CallDomain string
	Vendor     string
	Persona    string
}

// Args renders the params as agent command line flags.
func (p LaunchParams) Args() []string {
	args := []string{"-u", p.RoomURL, "-t", p.Token, "-i", p.CallID, "-d", p.CallDomain}
	if p.Vendor != "" {
		args = append(args, "-v", p.Vendor)
	}
	if p.Persona != "" {
		args = append(args, "-p", p.Persona)
	}
	return args
}

// Supervisor starts one agent process per call and tracks it until it exits.
type Supervisor struct {
	config  SupervisorConfig
	logger  *observability.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	handles  map[string]*Handle
	draining bool
}

// NewSupervisor creates a supervisor. metrics may be nil.
func NewSupervisor(config SupervisorConfig, logger *observability.Logger, metrics *observability.Metrics) *Supervisor {
	if len(config.Command) == 0 {
		config.Command = DefaultSupervisorConfig().Command
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultSupervisorConfig().DrainTimeout
	}

	return &Supervisor{
		config:  config,
		logger:  logger,
		metrics: metrics,
		handles: make(map[string]*Handle),
	}
}

// Launch starts an agent for one call. The process outlives ctx; it is bound
// to the supervisor and stopped by Shutdown.
func (s *Supervisor) Launch(ctx context.Context, params LaunchParams) (*Handle, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_id", Value: params.CallID},
		observability.Field{Key: "room_url", Value: params.RoomURL},
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draining {
		return nil, ErrShuttingDown
	}
	if s.config.MaxAgents > 0 && len(s.handles) >= s.config.MaxAgents {
		return nil, fmt.Errorf("%w: %d agents running", ErrCapacity, len(s.handles))
	}

	id := uuid.New().String()
	ctx = observability.WithFields(ctx, observability.Field{Key: "agent_id", Value: id})

	stdout := newLineLogger(ctx, s.logger, "stdout")
	stderr := newLineLogger(ctx, s.logger, "stderr")

	args := append(append([]string{}, s.config.Command[1:]...), params.Args()...)
	cmd := exec.Command(s.config.Command[0], args...)
	cmd.Env = append(os.Environ(), s.config.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		s.logger.Error(ctx, "failed to start agent process", err)
		return nil, fmt.Errorf("failed to start agent: %w", err)
	}

	h := &Handle{
		id:        id,
		params:    params,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		state:     StateRunning,
		done:      make(chan struct{}),
	}
	s.handles[id] = h
	if s.metrics != nil {
		s.metrics.ActiveAgents.Inc()
	}

	s.logger.Info(ctx, fmt.Sprintf("Started agent process pid=%d", h.pid))

	go s.wait(ctx, h, stdout, stderr)

	return h, nil
}

func (s *Supervisor) wait(ctx context.Context, h *Handle, stdout, stderr *lineLogger) {
	err := h.cmd.Wait()
	stdout.Flush()
	stderr.Flush()

	state := h.finish(err)
	defer close(h.done)

	s.mu.Lock()
	delete(s.handles, h.id)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ActiveAgents.Dec()
		s.metrics.AgentExits.WithLabelValues(string(state)).Inc()
	}

	if err != nil {
		s.logger.InfoWithError(ctx, fmt.Sprintf("Agent process pid=%d exited (%s)", h.pid, state), err)
		if state == StateFailed && s.config.OnFailure != nil {
			s.config.OnFailure(context.WithoutCancel(ctx), h.params)
		}
		return
	}
	s.logger.Info(ctx, fmt.Sprintf("Agent process pid=%d exited", h.pid))
}

// Active returns the running agents ordered by start time.
func (s *Supervisor) Active() []HandleInfo {
	s.mu.Lock()
	infos := make([]HandleInfo, 0, len(s.handles))
	for _, h := range s.handles {
		infos = append(infos, h.Info())
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// Shutdown stops accepting launches, sends SIGTERM to every agent and waits
// for them to exit. Agents still running after the drain timeout, or when ctx
// is done, are killed.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	if len(handles) == 0 {
		return nil
	}

	s.logger.Info(ctx, fmt.Sprintf("Stopping %d agent processes", len(handles)))

	for _, h := range handles {
		h.markTerminating()
		if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Error(ctx, fmt.Sprintf("failed to signal agent pid=%d", h.pid), err)
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, s.config.DrainTimeout)
	defer cancel()

	if waitAll(drainCtx, handles) {
		s.logger.Info(ctx, "All agent processes exited")
		return nil
	}

	s.logger.Warn(ctx, "Drain timeout exceeded, killing remaining agent processes")
	for _, h := range handles {
		select {
		case <-h.done:
			continue
		default:
		}
		h.markKilled()
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Error(ctx, fmt.Sprintf("failed to kill agent pid=%d", h.pid), err)
		}
	}

	// Killed processes are reaped by their wait goroutines.
	reapCtx, cancelReap := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelReap()
	waitAll(reapCtx, handles)

	return fmt.Errorf("drain timeout exceeded")
}

func waitAll(ctx context.Context, handles []*Handle) bool {
	for _, h := range handles {
		select {
		case <-h.done:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
