// Package rtmpio adapts the RTMP ingest/relay stack (internal/rtmp/client,
// internal/rtmp/server's Registry, internal/rtmp/relay) onto the codec
// package's Demuxer/Muxer interfaces. It is the concrete transport for any
// stream_url or output_url beginning with rtmp:// or rtmps://, and it is
// the reason a pipeline.Session never needs to know whether a given stream
// is being served by this same process's own RTMP ingest server or by a
// remote RTMP origin: both look like a codec.Demuxer.
package rtmpio

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/rtmp/chunk"
	"github.com/alxayo/go-mediaserver/internal/rtmp/server"
)

// LocalRegistry is the subset of *server.Registry this package needs. A real
// *server.Registry satisfies it directly; tests can supply a fake.
type LocalRegistry interface {
	GetStream(key string) *server.Stream
}

var (
	mu       sync.RWMutex
	registry LocalRegistry
	logger   = slog.Default()
)

// SetRegistry wires this process's own RTMP ingest registry into rtmpio so
// a stream_url that names a locally-hosted stream can be consumed entirely
// in-process, with no new network connection. Called once from cmd/mediasrv
// during startup, after the ingest server has been constructed.
func SetRegistry(r LocalRegistry) {
	mu.Lock()
	defer mu.Unlock()
	registry = r
}

// SetLogger overrides the package logger, mirroring internal/logger's
// WithConn/WithStream helper convention of structured, contextual logging.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func currentRegistry() LocalRegistry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

func streamKeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("rtmpio: parse url: %w", err)
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("rtmpio: url must be rtmp://host/app/stream, got %q", rawURL)
	}
	return parts[0] + "/" + parts[1], nil
}

// Opener is the rtmpio implementation of codec.Opener.
type Opener struct{}

func (Opener) OpenDemuxer(ctx context.Context, rawURL string, interrupt codec.InterruptFunc) (codec.Demuxer, error) {
	key, err := streamKeyFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	if reg := currentRegistry(); reg != nil {
		if stream := reg.GetStream(key); stream != nil {
			return newLocalDemuxer(stream, interrupt), nil
		}
	}
	return newRemoteDemuxer(rawURL, interrupt)
}

func (Opener) OpenMuxer(ctx context.Context, rawURL string, interrupt codec.InterruptFunc) (codec.Muxer, error) {
	return newPublishMuxer(rawURL, interrupt)
}

func init() {
	codec.Register(Opener{}, "rtmp", "rtmps")
}

// durationTracker derives a per-packet Duration from the gap between a
// stream's consecutive RTMP timestamps, since chunk.Message carries none:
// the RTMP wire format only ever timestamps the start of a tag. The first
// message seen for a given stream index has no prior timestamp to diff
// against, so its duration is 0.
type durationTracker struct {
	last map[int]int64
}

func newDurationTracker() *durationTracker {
	return &durationTracker{last: make(map[int]int64)}
}

func (t *durationTracker) durationFor(idx int, ts int64) int64 {
	var duration int64
	if last, ok := t.last[idx]; ok {
		duration = ts - last
	}
	t.last[idx] = ts
	return duration
}

// messageToPacket converts an inbound RTMP chunk.Message (always audio or
// video, TypeID 8/9) into a codec.Packet. The stream index is fixed at 0 for
// video and 1 for audio to match the StreamInfo ordering probeStreams below
// always produces.
func messageToPacket(msg *chunk.Message, durations *durationTracker) codec.Packet {
	idx := 1
	if msg.TypeID == 9 {
		idx = 0
	}
	ts := int64(msg.Timestamp)
	return codec.Packet{StreamIndex: idx, PTS: ts, DTS: ts, Duration: durations.durationFor(idx, ts), Data: msg.Payload}
}

// probeStreams returns the fixed two-stream layout (video=0, audio=1) every
// demuxer in this package reports: rtmp carries no out-of-band container
// metadata describing pixel dimensions ahead of the first video tag, so
// width/height are left zero and filled in lazily by whatever decoder first
// parses a sequence header, mirroring how the ingest server's own
// CodecDetector defers codec identification to the first tag (see
// internal/rtmp/media/codec_detector.go).
func probeStreams(videoCodec, audioCodec string) []codec.StreamInfo {
	streams := []codec.StreamInfo{
		{Index: 0, Kind: codec.KindVideo, Codec: videoCodec, TimeBase: codec.TimeBase{Num: 1, Den: 1000}},
	}
	if audioCodec != "" {
		streams = append(streams, codec.StreamInfo{Index: 1, Kind: codec.KindAudio, Codec: audioCodec, TimeBase: codec.TimeBase{Num: 1, Den: 1000}})
	}
	return streams
}
