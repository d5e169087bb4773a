package launcher

import (
	"context"
	"errors"
	"fmt"
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"time"
)

const DefaultSettleDelay = 3 * time.Second

var ErrProcessExited = errors.New("process exited during startup")

// Process is a started game process.
type Process interface {
	Pid() int
	// Wait blocks until the process exits.
	Wait() error
	Kill() error
}

// ProcessLauncher spawns the game. The launcher never builds a process itself.
type ProcessLauncher interface {
	Start(ctx context.Context, args *launch_args.LaunchArgs) (Process, error)
}

// Session is a game that survived its settle delay.
type Session struct {
	Args    *launch_args.LaunchArgs
	Process Process
	exited  chan error
}

// Done receives the exit result of the process once.
func (s *Session) Done() <-chan error { return s.exited }

// Start spawns args and waits for settle. A process that exits inside that
// window is reported as ErrProcessExited with its exit status.
func Start(ctx context.Context, pl ProcessLauncher, args *launch_args.LaunchArgs, settle time.Duration) (*Session, error) {
	p, err := pl.Start(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("start process: %w", err)
	}
	s := &Session{Args: args, Process: p, exited: make(chan error, 1)}
	go func() {
		s.exited <- p.Wait()
	}()

	timer := time.NewTimer(settle)
	defer timer.Stop()
	select {
	case err := <-s.exited:
		if err == nil {
			return nil, fmt.Errorf("%w: exit status 0", ErrProcessExited)
		}
		return nil, fmt.Errorf("%w: %v", ErrProcessExited, err)
	case <-ctx.Done():
		_ = p.Kill()
		<-s.exited
		return nil, ctx.Err()
	case <-timer.C:
		return s, nil
	}
}
