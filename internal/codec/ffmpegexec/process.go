package ffmpegexec

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/alxayo/go-mediaserver/internal/codec"
)

// ffmpegPath and ffprobePath name the ffmpeg/ffprobe binaries this package
// runs. They are unexported package variables resolved off PATH, same as
// every other_examples/ subprocess-based adapter in the retrieval pack.
var (
	ffmpegPath  = "ffmpeg"
	ffprobePath = "ffprobe"
)

// process wraps one long-lived ffmpeg subprocess with a watchdog goroutine
// that kills it if the supplied codec.InterruptFunc reports true, mirroring
// the original executor's interruptCallback but applied to a subprocess
// instead of an in-process libav call.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	mu      sync.Mutex
	closed  bool
	killCh  chan struct{}
	waitErr error
}

func startProcess(ctx context.Context, args []string, interrupt codec.InterruptFunc) (*process, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{cmd: cmd, stdin: stdin, stdout: stdout, killCh: make(chan struct{})}
	if interrupt != nil {
		go p.watch(interrupt)
	}
	return p, nil
}

func (p *process) watch(interrupt codec.InterruptFunc) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.killCh:
			return
		case <-ticker.C:
			if interrupt() {
				_ = p.cmd.Process.Kill()
				return
			}
		}
	}
}

// Close closes stdin (signalling ffmpeg to flush and exit for pipe-driven
// uses) and waits for the process to exit. Idempotent.
func (p *process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.waitErr
	}
	p.closed = true
	close(p.killCh)
	_ = p.stdin.Close()
	p.waitErr = p.cmd.Wait()
	return p.waitErr
}

// Kill forcibly terminates the subprocess without waiting for a clean exit,
// used when a flush sequence itself stalls.
func (p *process) Kill() error {
	return p.cmd.Process.Kill()
}
