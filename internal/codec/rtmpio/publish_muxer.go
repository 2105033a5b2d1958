package rtmpio

import (
	"fmt"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/rtmp/chunk"
	rtmpclient "github.com/alxayo/go-mediaserver/internal/rtmp/client"
	"github.com/alxayo/go-mediaserver/internal/rtmp/relay"
)

// clientFactory adapts rtmpclient.New to relay.RTMPClientFactory: Client
// already implements every method relay.RTMPClient requires (Connect,
// Publish, SendAudio, SendVideo, Close), so no wrapper type is needed.
func clientFactory(url string) (relay.RTMPClient, error) {
	return rtmpclient.New(url)
}

// publishMuxer implements codec.Muxer by publishing to an rtmp:// output
// through a relay.Destination, the same publish-and-forward primitive the
// teacher's multi-destination relay manager already uses for simulcasting.
// Recording never targets rtmp:// (it writes MP4/HLS via ffmpegexec) so in
// practice this path is exercised by mixing's continuous composited output.
type publishMuxer struct {
	dest     *relay.Destination
	streams  []codec.StreamInfo
	sentHead bool
}

func newPublishMuxer(rawURL string, interrupt codec.InterruptFunc) (codec.Muxer, error) {
	dest, err := relay.NewDestination(rawURL, logger, clientFactory)
	if err != nil {
		return nil, fmt.Errorf("rtmpio: %w", err)
	}
	if err := dest.Connect(); err != nil {
		return nil, fmt.Errorf("rtmpio: connect destination %s: %w", rawURL, err)
	}
	return &publishMuxer{dest: dest}, nil
}

func (m *publishMuxer) AddStream(info codec.StreamInfo) (int, error) {
	idx := len(m.streams)
	m.streams = append(m.streams, info)
	return idx, nil
}

// WriteHeader is a no-op: relay.Destination has no container header to
// emit, it just forwards audio/video tags as they arrive.
func (m *publishMuxer) WriteHeader() error { m.sentHead = true; return nil }

func (m *publishMuxer) WritePacket(pkt codec.Packet) error {
	if pkt.StreamIndex < 0 || pkt.StreamIndex >= len(m.streams) {
		return fmt.Errorf("rtmpio: unknown output stream index %d", pkt.StreamIndex)
	}
	typeID := uint8(9)
	if m.streams[pkt.StreamIndex].Kind == codec.KindAudio {
		typeID = 8
	}
	msg := &chunk.Message{
		TypeID:        typeID,
		Timestamp:     uint32(pkt.PTS),
		MessageLength: uint32(len(pkt.Data)),
		Payload:       pkt.Data,
	}
	return m.dest.SendMessage(msg)
}

// WriteTrailer is a no-op for the same reason WriteHeader is: there is no
// container trailer in a live RTMP publish.
func (m *publishMuxer) WriteTrailer() error { return nil }

func (m *publishMuxer) Close() error {
	return m.dest.Close()
}
