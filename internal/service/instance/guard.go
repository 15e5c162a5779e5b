package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/air-alarm/internal/logger"
)

// ErrAlreadyRunning is returned when another process with the same executable is alive.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard finds competing processes of the same executable.
type Guard struct {
	// name is the executable name to look for.
	name string
	// pid is this process and is never reported.
	pid int
	// list enumerates the running processes.
	list func() ([]ps.Process, error)
	// kill terminates a process by id.
	kill func(pid int) error
}

// Option configures a Guard.
type Option func(*Guard)

// WithProcessLister replaces the process table source.
func WithProcessLister(list func() ([]ps.Process, error)) Option {
	return func(g *Guard) {
		g.list = list
	}
}

// WithKiller replaces the function used to stop a competing process.
func WithKiller(kill func(pid int) error) Option {
	return func(g *Guard) {
		g.kill = kill
	}
}

// WithPID overrides the id treated as the current process.
func WithPID(pid int) Option {
	return func(g *Guard) {
		g.pid = pid
	}
}

// New creates a guard for the executable name. An empty name means the current executable.
func New(name string, opts ...Option) *Guard {
	if name == "" {
		name = currentExecutable()
	}

	g := &Guard{
		name: name,
		pid:  os.Getpid(),
		list: ps.Processes,
		kill: killProcess,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Others returns the ids of other processes running the same executable.
func (g *Guard) Others() ([]int, error) {
	processList, err := g.list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var pids []int

	for _, process := range processList {
		if process.Pid() == g.pid {
			continue
		}

		if !strings.EqualFold(process.Executable(), g.name) {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// Acquire fails with ErrAlreadyRunning when another instance exists.
// With takeover set the other instances are killed instead.
func (g *Guard) Acquire(ctx context.Context, takeover bool) error {
	pids, err := g.Others()
	if err != nil {
		return err
	}

	if len(pids) == 0 {
		return nil
	}

	if !takeover {
		return fmt.Errorf("%w: %s (pid %v)", ErrAlreadyRunning, g.name, pids)
	}

	for _, pid := range pids {
		logger.WarnKV(ctx, "Stopping competing instance", "executable", g.name, "pid", pid)

		if err = g.kill(pid); err != nil {
			return fmt.Errorf("kill pid %d: %w", pid, err)
		}
	}

	return nil
}

func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return process.Kill()
}

func currentExecutable() string {
	path, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}

	return filepath.Base(path)
}
