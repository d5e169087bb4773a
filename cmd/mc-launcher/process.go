package main

import (
	"bufio"
	"context"
	"github.com/mrmelon54/mc-launch-engine/launcher"
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"go.uber.org/zap"
	"io"
	"os"
	"os/exec"
	"sync"
)

// execLauncher starts the game as a child process and logs its output.
type execLauncher struct {
	log *zap.Logger
}

var _ launcher.ProcessLauncher = (*execLauncher)(nil)

func (e *execLauncher) Start(_ context.Context, args *launch_args.LaunchArgs) (launcher.Process, error) {
	if err := os.MkdirAll(args.WorkingDirectory, 0755); err != nil {
		return nil, err
	}
	cmd := exec.Command(args.Executable, args.Args()...)
	cmd.Dir = args.WorkingDirectory

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd}
	p.wg.Add(2)
	go p.pipe(stdout, e.log.Named("stdout"))
	go p.pipe(stderr, e.log.Named("stderr"))
	return p, nil
}

type execProcess struct {
	cmd *exec.Cmd
	wg  sync.WaitGroup
}

func (p *execProcess) pipe(r io.Reader, log *zap.Logger) {
	defer p.wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		log.Info(sc.Text())
	}
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

// Wait drains both output pipes before reaping the process.
func (p *execProcess) Wait() error {
	p.wg.Wait()
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error { return p.cmd.Process.Kill() }
