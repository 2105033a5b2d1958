package recording

import (
	"fmt"

	"github.com/alxayo/go-mediaserver/internal/codec"
)

// Handler implements pipeline.Handler for recording tasks: every demuxed
// packet is forwarded to the output muxer unchanged except for its PTS,
// DTS and Duration, each rescaled from the packet's own source stream time
// base into the muxer's millisecond time base. This is the fix for the
// recording bug where a shared rescale used the video stream's time base
// for every packet, corrupting audio timestamps whenever the two streams'
// time bases differed.
type Handler struct {
	muxer       codec.Muxer
	destOutTB   codec.TimeBase // the muxer's output time base, fixed at 1/1000
	srcStreams  map[int]codec.StreamInfo
	destIndexOf map[int]int // source stream index -> muxer stream index
}

// NewHandler builds a recording Handler writing into an already-resolved
// muxer (opened by the caller via codec.OpenMuxer against the policy's
// OutputPath).
func NewHandler(muxer codec.Muxer) *Handler {
	return &Handler{
		muxer:       muxer,
		destOutTB:   codec.TimeBase{Num: 1, Den: 1000},
		srcStreams:  make(map[int]codec.StreamInfo),
		destIndexOf: make(map[int]int),
	}
}

func (h *Handler) Init(streams []codec.StreamInfo) error {
	for _, s := range streams {
		destIdx, err := h.muxer.AddStream(s)
		if err != nil {
			return fmt.Errorf("recording: add stream: %w", err)
		}
		h.srcStreams[s.Index] = s
		h.destIndexOf[s.Index] = destIdx
	}
	return h.muxer.WriteHeader()
}

// rescale converts a PTS expressed in src's own time base into the muxer's
// millisecond time base. This must always use src — the stream the packet
// actually came from — never any other stream sharing the same muxer.
func (h *Handler) rescale(pts int64, src codec.StreamInfo) int64 {
	tb := src.TimeBase
	if tb.Num == 0 {
		tb.Num = 1
	}
	if tb.Den == 0 {
		tb.Den = 1000
	}
	return pts * int64(tb.Num) * int64(h.destOutTB.Den) / (int64(tb.Den) * int64(h.destOutTB.Num))
}

func (h *Handler) HandlePacket(pkt codec.Packet) error {
	src, ok := h.srcStreams[pkt.StreamIndex]
	if !ok {
		return nil // unknown stream, e.g. data/metadata tags; skip rather than fail the whole recording
	}
	destIdx, ok := h.destIndexOf[pkt.StreamIndex]
	if !ok {
		return nil
	}

	out := pkt
	out.StreamIndex = destIdx
	out.PTS = h.rescale(pkt.PTS, src)
	out.DTS = h.rescale(pkt.DTS, src)
	out.Duration = h.rescale(pkt.Duration, src)
	return h.muxer.WritePacket(out)
}

func (h *Handler) Flush() error {
	return h.muxer.WriteTrailer()
}

func (h *Handler) Close() error {
	return h.muxer.Close()
}
