package mixing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/codec/ffmpegexec"
	mediaerrors "github.com/alxayo/go-mediaserver/internal/errors"
	"github.com/alxayo/go-mediaserver/internal/logger"
	"github.com/alxayo/go-mediaserver/internal/metrics"
)

const outputFPS = 30

// Config mirrors pipeline.Config for the mixing engine's own watchdog,
// since a mix session has no single codec.Demuxer for pipeline.Session to
// wrap — it owns several, one per input, plus the shared output encoder.
type Config struct {
	CheckInterval time.Duration
	Timeout       time.Duration
}

func DefaultConfig() Config {
	return Config{CheckInterval: time.Second, Timeout: 3 * time.Second}
}

// Engine is a taskmanager.Runner (and taskmanager.Updater) implementing the
// mixing engine: it owns the output encoder/muxer, the persistent
// background frame, the live layout, and one input per currently
// compositing stream.
type Engine struct {
	cfg    Config
	params Params
	layout *layout
	log    *slog.Logger

	mu     sync.Mutex
	inputs map[string]*input

	lastProgress atomic.Int64
	stopped      atomic.Bool
}

func NewEngine(params Params, cfg Config) *Engine {
	log := logger.Logger().With("output_url", params.OutputURL)
	return &Engine{
		cfg:    cfg,
		params: params,
		layout: newLayout(log),
		log:    log,
		inputs: make(map[string]*input),
	}
}

// Update implements taskmanager.Updater. raw may be a Params value, a
// *Params, or a []Stream; only the stream list is consulted, matching the
// control contract that update only ever changes the live layout.
func (e *Engine) Update(raw interface{}) error {
	var next []Stream
	switch v := raw.(type) {
	case Params:
		next = v.Streams
	case *Params:
		next = v.Streams
	case []Stream:
		next = v
	default:
		return mediaerrors.NewAdmissionError("update", e.params.OutputURL, fmt.Errorf("mixing: unsupported update payload %T", raw))
	}
	e.layout.update(next)
	return nil
}

func (e *Engine) touch() { e.lastProgress.Store(time.Now().UnixNano()) }

func (e *Engine) interrupt() codec.InterruptFunc {
	return func() bool {
		if e.stopped.Load() {
			return true
		}
		last := e.lastProgress.Load()
		if last == 0 {
			return false
		}
		return time.Since(time.Unix(0, last)) > e.cfg.Timeout
	}
}

// Stop requests cooperative shutdown; the composite loop observes it
// between ticks, mirroring pipeline.Session's stop semantics.
func (e *Engine) Stop() { e.stopped.Store(true) }

func (e *Engine) Execute(ctx context.Context) error {
	if e.params.Width <= 0 || e.params.Height <= 0 {
		return mediaerrors.NewInitError("mix", fmt.Errorf("resolution must be positive, got %dx%d", e.params.Width, e.params.Height))
	}
	e.touch()

	mux, err := codec.OpenMuxer(ctx, e.params.OutputURL, e.interrupt())
	if err != nil {
		return mediaerrors.NewInitError("mix open output", err)
	}
	defer mux.Close()

	videoIdx, err := mux.AddStream(codec.StreamInfo{
		Kind: codec.KindVideo, Codec: "h264",
		Width: e.params.Width, Height: e.params.Height,
		TimeBase: codec.TimeBase{Num: 1, Den: 1000},
	})
	if err != nil {
		return mediaerrors.NewInitError("mix add video stream", err)
	}
	audioIdx, err := mux.AddStream(codec.StreamInfo{
		Kind: codec.KindAudio, Codec: "aac",
		TimeBase: codec.TimeBase{Num: 1, Den: 1000},
	})
	if err != nil {
		return mediaerrors.NewInitError("mix add audio stream", err)
	}
	if err := mux.WriteHeader(); err != nil {
		return mediaerrors.NewInitError("mix write header", err)
	}

	background, err := e.loadBackground(ctx)
	if err != nil {
		return mediaerrors.NewInitError("mix load background", err)
	}

	enc, err := ffmpegexec.OpenEncoder(ctx, e.params.Width, e.params.Height, e.interrupt())
	if err != nil {
		return mediaerrors.NewInitError("mix open encoder", err)
	}
	defer enc.Close()

	e.layout.update(e.params.Streams)

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return e.runComposite(gctx, mux, enc, videoIdx, background)
	})
	grp.Go(func() error {
		return e.runAudioPassthrough(gctx, mux, audioIdx)
	})
	grp.Go(func() error {
		return e.watchdog(gctx)
	})

	err = grp.Wait()
	e.closeInputs()
	if errors.Is(err, mediaerrors.ErrInterrupted) {
		metrics.InterruptAbortsTotal.WithLabelValues("mix").Inc()
	}
	if err != nil {
		return mediaerrors.NewSessionError("mix", err)
	}
	return mux.WriteTrailer()
}

func (e *Engine) watchdog(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if e.stopped.Load() {
				return nil
			}
			if e.interrupt()() {
				e.log.Warn("mix session timed out", "output_url", e.params.OutputURL)
				return mediaerrors.ErrInterrupted
			}
		}
	}
}

// loadBackground decodes params.BackgroundImage once as a one-shot input,
// scaled to the mix's target resolution, and returns it as the persistent
// RGB24 frame reused by every composite tick. An empty BackgroundImage
// yields an all-black frame of the same size.
func (e *Engine) loadBackground(ctx context.Context) ([]byte, error) {
	size := e.params.Width * e.params.Height * 3
	if e.params.BackgroundImage == "" {
		return make([]byte, size), nil
	}

	demux, err := codec.OpenDemuxer(ctx, e.params.BackgroundImage, nil)
	if err != nil {
		return nil, err
	}
	defer demux.Close()

	var videoInfo codec.StreamInfo
	for _, s := range demux.Streams() {
		if s.Kind == codec.KindVideo {
			videoInfo = s
			break
		}
	}

	dec, err := ffmpegexec.OpenDecoder(ctx, videoInfo, e.params.Width, e.params.Height, nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	pkt, err := demux.ReadPacket(ctx)
	if err != nil {
		return nil, fmt.Errorf("mixing: read background frame: %w", err)
	}
	if err := dec.SendPacket(pkt); err != nil {
		return nil, err
	}
	frame, err := dec.ReceiveFrame()
	if err != nil {
		return nil, fmt.Errorf("mixing: decode background frame: %w", err)
	}
	return frame.Data, nil
}

// runComposite drives the fixed 30fps output clock: each tick snapshots the
// live layout, blits every stream's latest decoded frame over the
// background in ascending z-index order, and sends the result to the
// encoder, writing whatever comes out to the muxer's video stream.
func (e *Engine) runComposite(ctx context.Context, mux codec.Muxer, enc codec.Encoder, videoIdx int, background []byte) error {
	cv := newCanvas(e.params.Width, e.params.Height)
	ticker := time.NewTicker(time.Second / outputFPS)
	defer ticker.Stop()

	var frameNum int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if e.stopped.Load() {
			return nil
		}

		cv.reset(background)
		for _, s := range e.layout.snapshot() {
			in := e.ensureInput(ctx, s)
			if in == nil {
				continue
			}
			if frame := in.latest(); frame != nil {
				cv.blit(frame, s.Width, s.Height, s.X, s.Y)
			}
		}

		if err := enc.SendFrame(codec.Frame{
			PTS: frameNum, Width: e.params.Width, Height: e.params.Height,
			PixFormat: "rgb24", Data: cv.bytes(),
		}); err != nil {
			return fmt.Errorf("mixing: encode send: %w", err)
		}
		pkt, err := enc.ReceiveEncoded()
		if err != nil {
			return fmt.Errorf("mixing: encode receive: %w", err)
		}
		pkt.StreamIndex = videoIdx
		if err := mux.WritePacket(pkt); err != nil {
			return fmt.Errorf("mixing: write video packet: %w", err)
		}
		e.touch()
		frameNum++
	}
}

// runAudioPassthrough forwards encoded audio packets from the lowest
// z-index stream that carries audio straight to the muxer's audio stream,
// re-selecting its source whenever the layout changes which stream holds
// that position. Audio from the other inputs is not mixed and is not
// logged; each newly selected source is logged once.
func (e *Engine) runAudioPassthrough(ctx context.Context, mux codec.Muxer, audioIdx int) error {
	var current *input
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if e.stopped.Load() {
			return nil
		}

		candidate := e.pickAudioSource()
		if candidate != current {
			if candidate != nil {
				e.log.Info("mix audio passthrough source selected", "stream_id", candidate.id)
			}
			current = candidate
		}
		if current == nil {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-current.audioCh:
			if !ok {
				current = nil
				continue
			}
			pkt.StreamIndex = audioIdx
			if err := mux.WritePacket(pkt); err != nil {
				return fmt.Errorf("mixing: write audio packet: %w", err)
			}
			e.touch()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// pickAudioSource returns the lowest-z-index, earliest-inserted input that
// currently has an audio stream, or nil if none of the live inputs do.
func (e *Engine) pickAudioSource() *input {
	for _, s := range e.layout.snapshot() {
		e.mu.Lock()
		in := e.inputs[s.ID]
		e.mu.Unlock()
		if in != nil && in.hasAudio() {
			return in
		}
	}
	return nil
}

// ensureInput returns the running input for s, opening and starting its
// pump goroutine on first reference and tearing down and reopening it if
// its placement size changed (the decoder's scale target is fixed at open
// time).
func (e *Engine) ensureInput(ctx context.Context, s Stream) *input {
	e.mu.Lock()
	defer e.mu.Unlock()

	if in, ok := e.inputs[s.ID]; ok {
		if in.targetW == s.Width && in.targetH == s.Height {
			return in
		}
		in.close()
		delete(e.inputs, s.ID)
	}

	in, err := openInput(ctx, s.ID, s.URL, s.Width, s.Height, e.interrupt(), e.log)
	if err != nil {
		e.log.Warn("mix input open failed", "stream_id", s.ID, "url", s.URL, "error", err)
		return nil
	}
	e.inputs[s.ID] = in
	go in.run(ctx)
	return in
}

func (e *Engine) closeInputs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, in := range e.inputs {
		in.close()
		delete(e.inputs, id)
	}
}
