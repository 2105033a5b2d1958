package mixing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/codec/ffmpegexec"
)

// input owns one mixing source's demux/decode/scale pipeline and caches its
// most recently decoded, already-scaled RGB24 frame so a stalled or slow
// input never blocks the compositor's fixed-rate tick — the compositor
// always blits whatever latest() returns, stale or not.
type input struct {
	id    string
	url   string
	demux codec.Demuxer
	dec   codec.Decoder

	targetW, targetH int // placement size the decoder scales to; forces reopen if changed

	videoStreamIndex int
	audioStreamIndex int // -1 if this input has no audio stream
	audioStream      codec.StreamInfo
	audioCh          chan codec.Packet // buffered; drained by the engine's audio passthrough router

	mu    sync.Mutex
	frame []byte // width*height*3 RGB24, nil until the first frame decodes

	log *slog.Logger
}

func openInput(ctx context.Context, id, url string, width, height int, interrupt codec.InterruptFunc, log *slog.Logger) (*input, error) {
	demux, err := codec.OpenDemuxer(ctx, url, interrupt)
	if err != nil {
		return nil, err
	}

	in := &input{
		id: id, url: url, demux: demux,
		targetW: width, targetH: height,
		videoStreamIndex: -1, audioStreamIndex: -1,
		audioCh: make(chan codec.Packet, 64),
		log:     log,
	}

	var videoInfo codec.StreamInfo
	for _, s := range demux.Streams() {
		switch s.Kind {
		case codec.KindVideo:
			if in.videoStreamIndex == -1 {
				in.videoStreamIndex = s.Index
				videoInfo = s
			}
		case codec.KindAudio:
			if in.audioStreamIndex == -1 {
				in.audioStreamIndex = s.Index
				in.audioStream = s
			}
		}
	}

	dec, err := ffmpegexec.OpenDecoder(ctx, videoInfo, width, height, interrupt)
	if err != nil {
		_ = demux.Close()
		return nil, err
	}
	in.dec = dec
	return in, nil
}

// hasAudio reports whether this input carries an audio stream eligible for
// the passthrough policy.
func (in *input) hasAudio() bool { return in.audioStreamIndex != -1 }

// latest returns a defensive copy of the most recently decoded frame, or
// nil if no frame has decoded yet (the compositor blits nothing for it in
// that case, leaving the background visible).
func (in *input) latest() []byte {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.frame == nil {
		return nil
	}
	out := make([]byte, len(in.frame))
	copy(out, in.frame)
	return out
}

// run pumps packets from this input's demuxer into its decoder until ctx is
// cancelled or the source ends, storing each decoded video frame as the
// latest one available to the compositor. A decode error on one input logs
// and stops only that input's pump; it does not abort the mixing session.
func (in *input) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pkt, err := in.demux.ReadPacket(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				in.log.Warn("mix input read failed", "stream_id", in.id, "url", in.url, "error", err)
			}
			return
		}
		if pkt.StreamIndex == in.audioStreamIndex {
			select {
			case in.audioCh <- pkt:
			default:
				// Audio router is behind; drop rather than block decode.
			}
			continue
		}
		if pkt.StreamIndex != in.videoStreamIndex {
			continue
		}
		if err := in.dec.SendPacket(pkt); err != nil {
			in.log.Warn("mix input decode send failed", "stream_id", in.id, "error", err)
			return
		}
		frame, err := in.dec.ReceiveFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				in.log.Warn("mix input decode receive failed", "stream_id", in.id, "error", err)
			}
			return
		}

		in.mu.Lock()
		in.frame = frame.Data
		in.mu.Unlock()
	}
}

func (in *input) close() {
	if in.dec != nil {
		_ = in.dec.Close()
	}
	// audioCh is intentionally never closed: run's goroutine may still be
	// mid-send on it when close is called during a placement-triggered
	// reopen, and closing out from under a concurrent send would panic.
	// demux.Close unblocks ReadPacket, which is what stops run's loop.
	_ = in.demux.Close()
}
