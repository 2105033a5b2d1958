package screenshot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/codec/ffmpegexec"
)

// Handler implements pipeline.Handler for screenshot tasks: it asks Policy,
// for each video packet, whether it should be saved; only accepted packets
// are decoded and scaled to the requested output size and written as PNGs
// under OutputDir.
type Handler struct {
	ctx       context.Context
	policy    Policy
	outputDir string
	prefix    string
	width     int
	height    int

	videoStream codec.StreamInfo
	decoder     codec.Decoder
	savedCount  int

	onStop func()
}

// NewHandler builds a screenshot Handler. onStop is called once the policy
// reports ShouldStop so the caller's Session can be told to stop reading.
func NewHandler(ctx context.Context, policy Policy, outputDir, prefix string, width, height int, onStop func()) *Handler {
	return &Handler{ctx: ctx, policy: policy, outputDir: outputDir, prefix: prefix, width: width, height: height, onStop: onStop}
}

func (h *Handler) Init(streams []codec.StreamInfo) error {
	for _, s := range streams {
		if s.Kind == codec.KindVideo {
			h.videoStream = s
			break
		}
	}
	if h.videoStream.Kind != codec.KindVideo {
		return fmt.Errorf("screenshot: no video stream found")
	}

	width, height := h.width, h.height
	if width == 0 {
		width = h.videoStream.Width
	}
	if height == 0 {
		height = h.videoStream.Height
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("screenshot: output dimensions unknown and not specified")
	}
	h.width, h.height = width, height

	decoder, err := ffmpegexec.OpenDecoder(h.ctx, h.videoStream, width, height, nil)
	if err != nil {
		return fmt.Errorf("screenshot: open decoder: %w", err)
	}
	h.decoder = decoder
	return nil
}

func (h *Handler) frameTime(pkt codec.Packet) float64 {
	tb := h.videoStream.TimeBase
	if tb.Den == 0 {
		tb.Den = 1000
	}
	if tb.Num == 0 {
		tb.Num = 1
	}
	return float64(pkt.PTS) * float64(tb.Num) / float64(tb.Den)
}

func (h *Handler) HandlePacket(pkt codec.Packet) error {
	if pkt.StreamIndex != h.videoStream.Index {
		return nil
	}
	frameTime := h.frameTime(pkt)
	if !h.policy.ShouldSave(frameTime) {
		if h.policy.ShouldStop() && h.onStop != nil {
			h.onStop()
		}
		return nil
	}

	if err := h.decoder.SendPacket(pkt); err != nil {
		return fmt.Errorf("screenshot: send packet: %w", err)
	}
	frame, err := h.decoder.ReceiveFrame()
	if err != nil {
		return fmt.Errorf("screenshot: receive frame: %w", err)
	}
	if err := h.saveFrame(frame); err != nil {
		return err
	}

	if h.policy.ShouldStop() && h.onStop != nil {
		h.onStop()
	}
	return nil
}

func (h *Handler) saveFrame(frame codec.Frame) error {
	path := filepath.Join(h.outputDir, fmt.Sprintf("%s_%04d.png", h.prefix, h.savedCount))
	h.savedCount++
	if err := WritePNG(path, frame.Width, frame.Height, frame.Data); err != nil {
		return err
	}
	return nil
}

func (h *Handler) Flush() error {
	if h.decoder == nil {
		return nil
	}
	return h.decoder.SendPacket(codec.EOSPacket)
}

func (h *Handler) Close() error {
	if h.decoder == nil {
		return nil
	}
	return h.decoder.Close()
}
