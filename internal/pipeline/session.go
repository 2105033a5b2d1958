// Package pipeline implements the shared decode/scale/encode/mux engine used
// by screenshot, recording and mixing tasks. It owns session init, the
// interrupt-driven timeout watchdog, and flush semantics; it knows nothing
// about what a screenshot, a recording or a mix actually does with the
// packets it reads — that behavior is supplied by a Handler.
package pipeline

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/alxayo/go-mediaserver/internal/codec"
	mediaerrors "github.com/alxayo/go-mediaserver/internal/errors"
)

// Handler implements the task-kind-specific behavior driven by a Session's
// read loop: screenshot decides which frames to save, recording rewrites and
// forwards packets unchanged, mixing composites across many sessions.
type Handler interface {
	// Init runs after the demuxer has been opened and its streams probed.
	// It is where a handler builds its decoder/scaler/encoder/muxer.
	Init(streams []codec.StreamInfo) error

	// HandlePacket is called once per demuxed packet, in stream order.
	HandlePacket(pkt codec.Packet) error

	// Flush is called exactly once after the demuxer reaches end of
	// stream or the session is stopped. Implementations must drive any
	// decoder/encoder EOS sentinels through to completion here.
	Flush() error

	Close() error
}

// Config controls the interrupt watchdog and is deliberately small: every
// other behavior lives in the Handler.
type Config struct {
	// CheckInterval is how often the watchdog polls for stalled progress.
	CheckInterval time.Duration
	// Timeout is how long the session may go without reading a packet
	// before the watchdog aborts it.
	Timeout time.Duration
}

// DefaultConfig mirrors the original executor's CHECK_INTERVAL (1s) and
// TIMEOUT (3s) constants.
func DefaultConfig() Config {
	return Config{CheckInterval: time.Second, Timeout: 3 * time.Second}
}

// resolve fills zero-value fields with DefaultConfig's values.
func (c Config) resolve() Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultConfig().CheckInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	return c
}

// Watchdog is a progress clock shared between a Demuxer/Muxer and the
// Session driving it. Build one with NewWatchdog *before* opening the
// demuxer so codec.OpenDemuxer/OpenMuxer can wire Interrupt() directly into
// the subprocess or connection (letting it abort itself on a stuck read),
// then hand the same Watchdog to NewWithWatchdog so the session's own
// progress touches and its watchdog poll share one clock instead of two
// independently-timed ones.
type Watchdog struct {
	timeout      time.Duration
	lastProgress atomic.Int64
}

// NewWatchdog builds a Watchdog whose Interrupt reports true once more than
// timeout has elapsed since the last Touch.
func NewWatchdog(timeout time.Duration) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	w := &Watchdog{timeout: timeout}
	w.Touch()
	return w
}

// Touch records progress now, resetting the interrupt clock.
func (w *Watchdog) Touch() { w.lastProgress.Store(time.Now().UnixNano()) }

// Interrupt returns a codec.InterruptFunc bound to this Watchdog's clock,
// mirroring the original executor's interruptCallback.
func (w *Watchdog) Interrupt() codec.InterruptFunc {
	return func() bool {
		last := time.Unix(0, w.lastProgress.Load())
		return time.Since(last) > w.timeout
	}
}

// Session owns one Demuxer and drives it through a Handler until end of
// stream, a caller-requested Stop, or the interrupt watchdog fires.
type Session struct {
	cfg     Config
	demux   codec.Demuxer
	handler Handler
	wd      *Watchdog

	stopped atomic.Bool
	aborted atomic.Bool
}

// New builds a Session around an already-open demuxer with its own
// Watchdog. Prefer NewWithWatchdog when the demuxer was itself opened with
// a Watchdog's Interrupt func, so a stalled subprocess/connection and this
// Session's read loop abort off the same clock.
func New(cfg Config, demux codec.Demuxer, handler Handler) *Session {
	cfg = cfg.resolve()
	return NewWithWatchdog(cfg, demux, handler, NewWatchdog(cfg.Timeout))
}

// NewWithWatchdog builds a Session around an already-open demuxer and a
// Watchdog constructed before that demuxer was opened (see Watchdog and
// codec.OpenDemuxer/OpenMuxer's interrupt parameter).
func NewWithWatchdog(cfg Config, demux codec.Demuxer, handler Handler, wd *Watchdog) *Session {
	cfg = cfg.resolve()
	if wd == nil {
		wd = NewWatchdog(cfg.Timeout)
	}
	return &Session{cfg: cfg, demux: demux, handler: handler, wd: wd}
}

// Stop requests cooperative shutdown; the running loop observes it between
// packets, same as the original's boolean "running_" flag but made safe for
// concurrent access.
func (s *Session) Stop() { s.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (s *Session) Stopped() bool { return s.stopped.Load() }

// Aborted reports whether the watchdog, rather than a caller or a clean end
// of stream, was the one that called Stop.
func (s *Session) Aborted() bool { return s.aborted.Load() }

// Run performs the init -> read loop -> flush sequence. It returns nil on a
// clean end of stream or caller-requested stop, and a *mediaerrors.SessionError
// (or *mediaerrors.InitError) otherwise.
func (s *Session) Run(ctx context.Context) error {
	if err := s.handler.Init(s.demux.Streams()); err != nil {
		return mediaerrors.NewInitError("handler_init", err)
	}

	// readCtx is the context actually handed to ReadPacket. The watchdog
	// cancels it directly on a stall so a ReadPacket call already blocked
	// in the demuxer unblocks immediately, instead of only being checked
	// between loop iterations.
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go s.watchdog(ctx, cancelRead)

	for {
		if s.stopped.Load() {
			break
		}
		select {
		case <-ctx.Done():
			return s.flushAndClose(mediaerrors.NewSessionError("run", ctx.Err()))
		default:
		}

		pkt, err := s.demux.ReadPacket(readCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if s.aborted.Load() {
				return s.flushAndClose(mediaerrors.ErrInterrupted)
			}
			return s.flushAndClose(mediaerrors.NewSessionError("read_packet", err))
		}
		s.wd.Touch()

		if err := s.handler.HandlePacket(pkt); err != nil {
			return s.flushAndClose(mediaerrors.NewSessionError("handle_packet", err))
		}
	}

	return s.flushAndClose(nil)
}

func (s *Session) flushAndClose(runErr error) error {
	flushErr := s.handler.Flush()
	closeErr := s.handler.Close()
	_ = s.demux.Close()

	if runErr != nil {
		return runErr
	}
	if flushErr != nil {
		return mediaerrors.NewSessionError("flush", flushErr)
	}
	if closeErr != nil {
		return mediaerrors.NewSessionError("close", closeErr)
	}
	return nil
}

// watchdog polls the Watchdog's Interrupt at cfg.CheckInterval. On a stall it
// sets Stop and cancels cancelRead directly, so a ReadPacket call already
// blocked on the demuxer returns immediately instead of waiting for the next
// iteration's ctx check. Concrete Demuxer/Muxer implementations additionally
// receive the same InterruptFunc directly (via Watchdog.Interrupt, wired in
// before the demuxer was opened) so a subprocess or socket read can abort
// itself without waiting for this poll either.
func (s *Session) watchdog(ctx context.Context, cancelRead context.CancelFunc) {
	interrupt := s.wd.Interrupt()
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if interrupt() {
				s.aborted.Store(true)
				s.Stop()
				cancelRead()
				return
			}
		}
	}
}
