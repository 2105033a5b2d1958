package rtmpio

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/rtmp/chunk"
	"github.com/alxayo/go-mediaserver/internal/rtmp/server"
)

// localDemuxer subscribes to an already-hosted server.Stream the same way a
// relay destination or a second viewer would, except it hands every
// incoming message straight to the pipeline as a codec.Packet instead of
// re-encoding it onto a socket. This is the zero-new-network-code path: a
// screenshot or recording task pointed at a stream_url this process itself
// is already ingesting never dials out at all.
type localDemuxer struct {
	stream    *server.Stream
	interrupt codec.InterruptFunc
	durations *durationTracker

	mu     sync.Mutex
	queue  chan *chunk.Message
	closed bool
}

const localDemuxerQueueSize = 256

func newLocalDemuxer(stream *server.Stream, interrupt codec.InterruptFunc) *localDemuxer {
	d := &localDemuxer{stream: stream, interrupt: interrupt, durations: newDurationTracker(), queue: make(chan *chunk.Message, localDemuxerQueueSize)}
	stream.AddSubscriber(d)
	return d
}

// SendMessage implements media.Subscriber. The registry's BroadcastMessage
// only falls back to this if TrySendMessage (below) is unavailable, which it
// never is here; kept best-effort (never blocks) for the same reason
// TrySendMessage is, so it can never deadlock against a concurrent Close.
func (d *localDemuxer) SendMessage(msg *chunk.Message) error {
	d.TrySendMessage(msg)
	return nil
}

// TrySendMessage implements media.TrySendMessage, the non-blocking
// backpressure path the registry's BroadcastMessage prefers (see
// internal/rtmp/server/registry.go). A full queue means this demuxer's
// consumer has fallen behind; the message is dropped rather than blocking
// the publisher's broadcast loop. Held entirely under d.mu so it can never
// race with Close closing the same channel.
func (d *localDemuxer) TrySendMessage(msg *chunk.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return true
	}
	select {
	case d.queue <- msg:
		return true
	default:
		return false
	}
}

func (d *localDemuxer) Streams() []codec.StreamInfo {
	video := d.stream.GetVideoCodec()
	audio := d.stream.GetAudioCodec()
	return probeStreams(video, audio)
}

func (d *localDemuxer) ReadPacket(ctx context.Context) (codec.Packet, error) {
	select {
	case <-ctx.Done():
		return codec.Packet{}, ctx.Err()
	case msg, ok := <-d.queue:
		if !ok {
			return codec.Packet{}, io.EOF
		}
		if msg == nil {
			return codec.Packet{}, errors.New("rtmpio: nil message from subscriber queue")
		}
		return messageToPacket(msg, d.durations), nil
	}
}

func (d *localDemuxer) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	d.stream.RemoveSubscriber(d)
	close(d.queue)
	return nil
}
