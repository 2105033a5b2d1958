package recording

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alxayo/go-mediaserver/internal/codec"
)

type fakeMuxer struct {
	streams       []codec.StreamInfo
	packets       []codec.Packet
	headerWritten bool
	trailerCalled bool
	closed        bool
	addStreamErr  error
}

func (m *fakeMuxer) AddStream(info codec.StreamInfo) (int, error) {
	if m.addStreamErr != nil {
		return 0, m.addStreamErr
	}
	idx := len(m.streams)
	m.streams = append(m.streams, info)
	return idx, nil
}

func (m *fakeMuxer) WriteHeader() error {
	m.headerWritten = true
	return nil
}

func (m *fakeMuxer) WritePacket(pkt codec.Packet) error {
	m.packets = append(m.packets, pkt)
	return nil
}

func (m *fakeMuxer) WriteTrailer() error {
	m.trailerCalled = true
	return nil
}

func (m *fakeMuxer) Close() error {
	m.closed = true
	return nil
}

func TestHandlerInitAddsEveryStreamAndWritesHeader(t *testing.T) {
	mux := &fakeMuxer{}
	h := NewHandler(mux)

	streams := []codec.StreamInfo{
		{Index: 0, Kind: codec.KindVideo, TimeBase: codec.TimeBase{Num: 1, Den: 90000}},
		{Index: 1, Kind: codec.KindAudio, TimeBase: codec.TimeBase{Num: 1, Den: 48000}},
	}
	require.NoError(t, h.Init(streams))
	require.True(t, mux.headerWritten)
	require.Len(t, mux.streams, 2)
}

func TestHandlerInitPropagatesAddStreamError(t *testing.T) {
	mux := &fakeMuxer{addStreamErr: errors.New("boom")}
	h := NewHandler(mux)

	err := h.Init([]codec.StreamInfo{{Index: 0, Kind: codec.KindVideo}})
	require.Error(t, err)
}

// TestHandlePacketRescalesEachStreamWithItsOwnTimeBase is the regression test
// for the bug where every packet was rescaled with the video stream's time
// base: a video packet at 90kHz and an audio packet at 48kHz covering the
// same wall-clock duration must land on the same millisecond PTS after
// rescaling, not diverge because audio borrowed video's time base.
func TestHandlePacketRescalesEachStreamWithItsOwnTimeBase(t *testing.T) {
	mux := &fakeMuxer{}
	h := NewHandler(mux)

	streams := []codec.StreamInfo{
		{Index: 0, Kind: codec.KindVideo, TimeBase: codec.TimeBase{Num: 1, Den: 90000}},
		{Index: 1, Kind: codec.KindAudio, TimeBase: codec.TimeBase{Num: 1, Den: 48000}},
	}
	require.NoError(t, h.Init(streams))

	// Both packets represent exactly 1 second of media.
	videoPkt := codec.Packet{StreamIndex: 0, PTS: 90000, DTS: 90000}
	audioPkt := codec.Packet{StreamIndex: 1, PTS: 48000, DTS: 48000}

	require.NoError(t, h.HandlePacket(videoPkt))
	require.NoError(t, h.HandlePacket(audioPkt))

	require.Len(t, mux.packets, 2)
	require.Equal(t, int64(1000), mux.packets[0].PTS)
	require.Equal(t, int64(1000), mux.packets[1].PTS)
}

// TestHandlePacketRescalesDurationWithSourceTimeBase is the regression test
// for the bug where Duration was dropped on the floor entirely, breaking the
// "sum of output durations equals sum of input durations" property any
// container muxer relies on to place the next packet correctly.
func TestHandlePacketRescalesDurationWithSourceTimeBase(t *testing.T) {
	mux := &fakeMuxer{}
	h := NewHandler(mux)

	streams := []codec.StreamInfo{
		{Index: 0, Kind: codec.KindVideo, TimeBase: codec.TimeBase{Num: 1, Den: 90000}},
	}
	require.NoError(t, h.Init(streams))

	// 3000 ticks at 90kHz is exactly one 30fps video frame's duration.
	require.NoError(t, h.HandlePacket(codec.Packet{StreamIndex: 0, PTS: 90000, DTS: 90000, Duration: 3000}))

	require.Len(t, mux.packets, 1)
	require.Equal(t, int64(33), mux.packets[0].Duration)
}

func TestHandlePacketSkipsUnknownStream(t *testing.T) {
	mux := &fakeMuxer{}
	h := NewHandler(mux)
	require.NoError(t, h.Init([]codec.StreamInfo{
		{Index: 0, Kind: codec.KindVideo, TimeBase: codec.TimeBase{Num: 1, Den: 90000}},
	}))

	require.NoError(t, h.HandlePacket(codec.Packet{StreamIndex: 7, PTS: 123}))
	require.Empty(t, mux.packets)
}

func TestHandlePacketRemapsStreamIndexToMuxerIndex(t *testing.T) {
	mux := &fakeMuxer{}
	h := NewHandler(mux)
	// Source stream indices are not contiguous from 0; the muxer assigns its
	// own indices in AddStream call order.
	require.NoError(t, h.Init([]codec.StreamInfo{
		{Index: 3, Kind: codec.KindVideo, TimeBase: codec.TimeBase{Num: 1, Den: 1000}},
		{Index: 5, Kind: codec.KindAudio, TimeBase: codec.TimeBase{Num: 1, Den: 1000}},
	}))

	require.NoError(t, h.HandlePacket(codec.Packet{StreamIndex: 5, PTS: 10}))
	require.Len(t, mux.packets, 1)
	require.Equal(t, 1, mux.packets[0].StreamIndex)
}

func TestFlushWritesTrailerAndCloseClosesMuxer(t *testing.T) {
	mux := &fakeMuxer{}
	h := NewHandler(mux)
	require.NoError(t, h.Flush())
	require.True(t, mux.trailerCalled)
	require.NoError(t, h.Close())
	require.True(t, mux.closed)
}
