package ffmpegexec

import (
	"context"

	"github.com/alxayo/go-mediaserver/internal/codec"
)

// Opener is the ffmpegexec implementation of codec.Opener, registered for
// every scheme not claimed by rtmpio (bare file paths, file://, http://,
// https://).
type Opener struct{}

func (Opener) OpenDemuxer(ctx context.Context, url string, interrupt codec.InterruptFunc) (codec.Demuxer, error) {
	return openDemuxer(ctx, url, interrupt)
}

func (Opener) OpenMuxer(ctx context.Context, url string, interrupt codec.InterruptFunc) (codec.Muxer, error) {
	return openMuxer(ctx, url, interrupt)
}

func init() {
	codec.Register(Opener{}, "file", "http", "https")
}

// OpenDecoder, OpenScaler and OpenEncoder are exported directly (rather than
// through codec.Opener) because they operate on one already-identified
// stream within a session, not on a URL.
func OpenDecoder(ctx context.Context, info codec.StreamInfo, width, height int, interrupt codec.InterruptFunc) (codec.Decoder, error) {
	return openDecoder(ctx, info, width, height, interrupt)
}

func OpenScaler(ctx context.Context, dstW, dstH int, interrupt codec.InterruptFunc) (codec.Scaler, error) {
	return openScaler(ctx, dstW, dstH, interrupt)
}

func OpenEncoder(ctx context.Context, width, height int, interrupt codec.InterruptFunc) (codec.Encoder, error) {
	return openEncoder(ctx, width, height, interrupt)
}
