package rtmpio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/rtmp/chunk"
	rtmpclient "github.com/alxayo/go-mediaserver/internal/rtmp/client"
)

// remoteDemuxer consumes a genuinely external rtmp:// source by dialing out
// with the RTMP test client's Play mode (internal/rtmp/client) and reading
// media messages off its ReceiveMedia method. Used whenever a stream_url
// names a stream this process is not itself hosting in its Registry.
type remoteDemuxer struct {
	client    *rtmpclient.Client
	video     string
	audio     string
	durations *durationTracker

	killCh chan struct{}
	once   sync.Once
}

func newRemoteDemuxer(rawURL string, interrupt codec.InterruptFunc) (codec.Demuxer, error) {
	c, err := rtmpclient.New(rawURL)
	if err != nil {
		return nil, fmt.Errorf("rtmpio: %w", err)
	}
	if err := c.Connect(); err != nil {
		return nil, fmt.Errorf("rtmpio: connect to %s: %w", rawURL, err)
	}
	if err := c.Play(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("rtmpio: play %s: %w", rawURL, err)
	}
	d := &remoteDemuxer{client: c, durations: newDurationTracker(), killCh: make(chan struct{})}
	if interrupt != nil {
		go d.watch(interrupt)
	}
	return d, nil
}

// watch mirrors ffmpegexec's process.watch: it polls interrupt and closes
// the underlying connection the moment it reports true, which is the only
// thing that can unblock a ReceiveMedia call already parked in a blocking
// socket read.
func (d *remoteDemuxer) watch(interrupt codec.InterruptFunc) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-d.killCh:
			return
		case <-ticker.C:
			if interrupt() {
				_ = d.client.Close()
				return
			}
		}
	}
}

// Streams always reports the video-only layout with codec="": the video and
// audio codec names are never filled in from incoming tags, so no audio
// stream is reported for a remote source (see probeStreams). A remote
// source's real codec only becomes known from the tag contents themselves,
// not from any RTMP handshake/command field.
func (d *remoteDemuxer) Streams() []codec.StreamInfo {
	return probeStreams(d.video, d.audio)
}

func (d *remoteDemuxer) ReadPacket(ctx context.Context) (codec.Packet, error) {
	type result struct {
		msg *chunk.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := d.client.ReceiveMedia()
		done <- result{msg, err}
	}()

	select {
	case <-ctx.Done():
		return codec.Packet{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			if res.err == io.EOF {
				return codec.Packet{}, io.EOF
			}
			return codec.Packet{}, fmt.Errorf("rtmpio: receive media: %w", res.err)
		}
		return messageToPacket(res.msg, d.durations), nil
	}
}

func (d *remoteDemuxer) Close() error {
	d.once.Do(func() { close(d.killCh) })
	return d.client.Close()
}
