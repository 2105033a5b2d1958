// Package codec defines the narrow set of collaborator interfaces the media
// pipeline uses to talk to a demuxer, decoder, scaler, encoder or muxer. It
// never implements the actual codec work itself; concrete implementations
// live in internal/codec/ffmpegexec (subprocess ffmpeg/ffprobe) and
// internal/codec/rtmpio (the in-process RTMP stack).
package codec

import (
	"context"
	"io"
	"time"
)

// MediaKind distinguishes audio from video streams and packets.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindVideo
	KindAudio
)

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// TimeBase is a rational number expressing the unit of a stream's
// timestamps, e.g. {1, 1000} for millisecond ticks.
type TimeBase struct {
	Num int
	Den int
}

// StreamInfo describes one elementary stream inside a container.
type StreamInfo struct {
	Index     int
	Kind      MediaKind
	Codec     string // e.g. "h264", "aac", "png"
	TimeBase  TimeBase
	Width     int
	Height    int
	PixFormat string // decoder/scaler pixel format name, e.g. "yuv420p"
}

// Packet is one encoded access unit, still in its source time base.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	Duration    int64
	Data        []byte
	KeyFrame    bool
}

// Frame is one decoded, uncompressed video frame in a known pixel format.
// Audio frames are represented by their own PCM-shaped Data slice; the
// pipeline treats them opaquely except when feeding them back to an Encoder.
type Frame struct {
	PTS       int64
	Width     int
	Height    int
	PixFormat string
	Data      []byte
}

// InterruptFunc is polled by blocking codec operations (read/write) so a
// caller can abort a stuck subprocess or stalled connection. It mirrors the
// original executor's interrupt callback: returning true aborts the
// in-flight operation with ErrInterrupted.
type InterruptFunc func() bool

// Demuxer reads packets for probed streams out of a source (file, RTMP
// stream, pipe).
type Demuxer interface {
	// Streams returns the elementary streams the demuxer currently knows
	// about (probed at open for files, taken from the live stream's detected
	// codecs for RTMP sources).
	Streams() []StreamInfo

	// ReadPacket blocks until the next packet is available, ctx is
	// cancelled, or the source reaches end of stream (io.EOF).
	ReadPacket(ctx context.Context) (Packet, error)

	Close() error
}

// Muxer writes packets for one or more streams to a destination (file,
// RTMP stream, HLS segment set).
type Muxer interface {
	// AddStream declares an output stream and returns its assigned index,
	// which callers use in subsequent WritePacket calls.
	AddStream(info StreamInfo) (int, error)

	// WriteHeader must be called once, after all AddStream calls and
	// before the first WritePacket.
	WriteHeader() error

	WritePacket(pkt Packet) error

	// WriteTrailer flushes and finalizes the destination. Idempotent.
	WriteTrailer() error

	Close() error
}

// Decoder turns encoded packets from one stream into raw frames.
type Decoder interface {
	SendPacket(pkt Packet) error
	// ReceiveFrame returns io.EOF once a prior SendPacket(eosPacket) has
	// fully drained.
	ReceiveFrame() (Frame, error)
	Close() error
}

// Encoder turns raw frames into encoded packets for one output stream.
type Encoder interface {
	SendFrame(f Frame) error
	ReceiveEncoded() (Packet, error)
	Close() error
}

// Scaler converts a frame from one resolution/pixel format to another,
// implemented with bilinear interpolation in every concrete adapter.
type Scaler interface {
	Scale(src Frame) (Frame, error)
	Close() error
}

// EOSPacket and EOSFrame are the sentinel values that signal end of stream
// through a Decoder/Encoder's send side, mirroring the flush sequence
// required by the media pipeline: send the sentinel, drain until
// io.EOF is returned from the matching receive side, then close.
var (
	EOSPacket = Packet{StreamIndex: -1}
	EOSFrame  = Frame{PTS: -1}
)

// IsEOS reports whether pkt is the end-of-stream sentinel.
func (p Packet) IsEOS() bool { return p.StreamIndex == -1 && p.Data == nil }

// IsEOS reports whether f is the end-of-stream sentinel.
func (f Frame) IsEOS() bool { return f.PTS == -1 && f.Data == nil }

// Opener resolves a stream_url/output_url/file path to a concrete Demuxer
// or Muxer. Registered by scheme so rtmpio and ffmpegexec can each own the
// schemes they handle without pipeline ever importing either directly.
type Opener interface {
	OpenDemuxer(ctx context.Context, url string, interrupt InterruptFunc) (Demuxer, error)
	OpenMuxer(ctx context.Context, url string, interrupt InterruptFunc) (Muxer, error)
}

// WriteCloser is satisfied by files and pipes used as raw sinks, e.g. a
// screenshot's PNG output.
type WriteCloser = io.WriteCloser

// NowFunc abstracts time.Now so interrupt watchdogs are testable; production
// code always passes time.Now.
type NowFunc func() time.Time
