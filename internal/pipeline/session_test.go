package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alxayo/go-mediaserver/internal/codec"
	mediaerrors "github.com/alxayo/go-mediaserver/internal/errors"
)

type fakeDemuxer struct {
	streams []codec.StreamInfo
	packets []codec.Packet
	idx     int
	closed  bool
	delay   time.Duration

	// blockForever makes ReadPacket hang until ctx is cancelled, with no
	// internal timer of its own: the only way it ever returns is a
	// cancelled ctx, the same shape as a stalled ffmpeg subprocess read or
	// a stuck RTMP socket read.
	blockForever bool
}

func (f *fakeDemuxer) Streams() []codec.StreamInfo { return f.streams }

func (f *fakeDemuxer) ReadPacket(ctx context.Context) (codec.Packet, error) {
	if f.blockForever {
		<-ctx.Done()
		return codec.Packet{}, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return codec.Packet{}, ctx.Err()
		}
	}
	if f.idx >= len(f.packets) {
		return codec.Packet{}, io.EOF
	}
	p := f.packets[f.idx]
	f.idx++
	return p, nil
}

func (f *fakeDemuxer) Close() error { f.closed = true; return nil }

type recordingHandler struct {
	initStreams []codec.StreamInfo
	packets     []codec.Packet
	flushed     bool
	closed      bool
	handleErr   error
}

func (h *recordingHandler) Init(streams []codec.StreamInfo) error {
	h.initStreams = streams
	return nil
}

func (h *recordingHandler) HandlePacket(pkt codec.Packet) error {
	h.packets = append(h.packets, pkt)
	return h.handleErr
}

func (h *recordingHandler) Flush() error { h.flushed = true; return nil }
func (h *recordingHandler) Close() error { h.closed = true; return nil }

func TestSessionRunDrainsToEOF(t *testing.T) {
	dmx := &fakeDemuxer{
		streams: []codec.StreamInfo{{Index: 0, Kind: codec.KindVideo}},
		packets: []codec.Packet{{StreamIndex: 0, PTS: 1}, {StreamIndex: 0, PTS: 2}},
	}
	h := &recordingHandler{}
	s := New(DefaultConfig(), dmx, h)

	err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, h.packets, 2)
	require.True(t, h.flushed)
	require.True(t, h.closed)
	require.True(t, dmx.closed)
}

func TestSessionStopIsCooperative(t *testing.T) {
	dmx := &fakeDemuxer{
		streams: []codec.StreamInfo{{Index: 0, Kind: codec.KindVideo}},
		packets: []codec.Packet{{StreamIndex: 0}, {StreamIndex: 0}, {StreamIndex: 0}},
	}
	h := &recordingHandler{}
	s := New(DefaultConfig(), dmx, h)

	// Stop before Run even starts reading: loop should exit immediately
	// and still flush/close cleanly.
	s.Stop()
	err := s.Run(context.Background())
	require.NoError(t, err)
	require.True(t, h.flushed)
}

func TestSessionWatchdogAbortsStalledRead(t *testing.T) {
	dmx := &fakeDemuxer{
		streams:      []codec.StreamInfo{{Index: 0, Kind: codec.KindVideo}},
		blockForever: true,
	}
	h := &recordingHandler{}
	cfg := Config{CheckInterval: 2 * time.Millisecond, Timeout: 5 * time.Millisecond}
	s := New(cfg, dmx, h)

	// The outer ctx deadline is far longer than the watchdog's timeout, so
	// this only passes if the watchdog itself cancels the ReadPacket call
	// already blocked inside the demuxer; it would hang until this
	// deadline (and fail the 200ms assertion below) if Stop alone were
	// enough, since a demuxer parked in ReadPacket never reaches the
	// between-iterations check that Stop sets.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.Less(t, time.Since(start), 200*time.Millisecond,
			"watchdog should abort the stalled read well before the outer ctx deadline")
		require.True(t, errors.Is(err, mediaerrors.ErrInterrupted))
		require.True(t, s.Aborted())
		require.True(t, dmx.closed)
		require.True(t, h.flushed)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Session.Run did not return; watchdog failed to cancel the blocked ReadPacket call")
	}
}

func TestSessionPropagatesHandlerError(t *testing.T) {
	dmx := &fakeDemuxer{
		streams: []codec.StreamInfo{{Index: 0}},
		packets: []codec.Packet{{StreamIndex: 0}},
	}
	h := &recordingHandler{handleErr: io.ErrUnexpectedEOF}
	s := New(DefaultConfig(), dmx, h)

	err := s.Run(context.Background())
	require.Error(t, err)
	require.True(t, h.flushed, "flush should still run even after a handler error")
}
