package rtmpio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alxayo/go-mediaserver/internal/rtmp/chunk"
	"github.com/alxayo/go-mediaserver/internal/rtmp/server"
)

func TestStreamKeyFromURL(t *testing.T) {
	key, err := streamKeyFromURL("rtmp://localhost/live/camera1")
	require.NoError(t, err)
	require.Equal(t, "live/camera1", key)

	_, err = streamKeyFromURL("rtmp://localhost/live")
	require.Error(t, err)
}

func TestMessageToPacketStreamIndex(t *testing.T) {
	video := messageToPacket(&chunk.Message{TypeID: 9, Timestamp: 10, Payload: []byte{1}}, newDurationTracker())
	require.Equal(t, 0, video.StreamIndex)

	audio := messageToPacket(&chunk.Message{TypeID: 8, Timestamp: 10, Payload: []byte{1}}, newDurationTracker())
	require.Equal(t, 1, audio.StreamIndex)
}

func TestMessageToPacketDuration(t *testing.T) {
	durations := newDurationTracker()
	first := messageToPacket(&chunk.Message{TypeID: 9, Timestamp: 10, Payload: []byte{1}}, durations)
	require.Equal(t, int64(0), first.Duration, "first packet on a stream has no prior timestamp to diff against")

	second := messageToPacket(&chunk.Message{TypeID: 9, Timestamp: 43, Payload: []byte{1}}, durations)
	require.Equal(t, int64(33), second.Duration)
}

func TestLocalDemuxerDeliversQueuedMessages(t *testing.T) {
	reg := server.NewRegistry()
	stream, _ := reg.CreateStream("live/camera1")

	d := newLocalDemuxer(stream, nil)
	require.True(t, d.TrySendMessage(&chunk.Message{TypeID: 9, Timestamp: 1, Payload: []byte{0xAA}}))

	pkt, err := d.ReadPacket(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, pkt.StreamIndex)
	require.Equal(t, []byte{0xAA}, pkt.Data)

	require.NoError(t, d.Close())
	// Sends after Close must not panic and must report success so the
	// broadcaster never blocks on a torn-down subscriber.
	require.True(t, d.TrySendMessage(&chunk.Message{TypeID: 9}))
	require.NoError(t, d.Close())
}

func TestLocalDemuxerDropsWhenQueueFull(t *testing.T) {
	reg := server.NewRegistry()
	stream, _ := reg.CreateStream("live/camera2")
	d := newLocalDemuxer(stream, nil)
	defer d.Close()

	for i := 0; i < localDemuxerQueueSize; i++ {
		require.True(t, d.TrySendMessage(&chunk.Message{TypeID: 9}))
	}
	require.False(t, d.TrySendMessage(&chunk.Message{TypeID: 9}), "queue should be full and drop")
}
