package ffmpegexec

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/alxayo/go-mediaserver/internal/codec"
)

// rgb24FrameSize returns the number of bytes one W*H rgb24 frame occupies,
// the fixed-size framing every raw video pipe in this adapter relies on so
// no additional length prefix is needed.
func rgb24FrameSize(w, h int) int { return w * h * 3 }

// decoder implements codec.Decoder by piping encoded packets for one stream
// into an ffmpeg subprocess as FLV and reading fixed-size rgb24 frames back
// out. Used by the mixing engine to get every input stream into a common
// pixel format for compositing.
type decoder struct {
	proc   *process
	r      *bufio.Reader
	width  int
	height int
	frames chan codec.Frame
	errs   chan error
	codecT byte
}

func openDecoder(ctx context.Context, info codec.StreamInfo, width, height int, interrupt codec.InterruptFunc) (codec.Decoder, error) {
	codecArg := inputCodecArg(info.Codec)
	args := []string{
		"-v", "quiet",
		"-f", "flv", "-i", "pipe:0",
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=bilinear", width, height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo", "pipe:1",
	}
	_ = codecArg // ffmpeg auto-detects the codec from the FLV container; kept for documentation.

	proc, err := startProcess(ctx, args, interrupt)
	if err != nil {
		return nil, err
	}

	tagType := byte(tagTypeVideo)
	if info.Kind == codec.KindAudio {
		tagType = tagTypeAudio
	}

	d := &decoder{
		proc:   proc,
		r:      bufio.NewReaderSize(proc.stdout, rgb24FrameSize(width, height)*2),
		width:  width,
		height: height,
		frames: make(chan codec.Frame, 4),
		errs:   make(chan error, 1),
		codecT: tagType,
	}
	if err := writeFLVHeader(proc.stdin, info.Kind == codec.KindAudio, info.Kind == codec.KindVideo); err != nil {
		_ = proc.Close()
		return nil, err
	}
	go d.pump()
	return d, nil
}

func inputCodecArg(name string) string { return name }

func (d *decoder) pump() {
	defer close(d.frames)
	size := rgb24FrameSize(d.width, d.height)
	var pts int64
	for {
		buf := make([]byte, size)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				d.errs <- err
			}
			return
		}
		d.frames <- codec.Frame{PTS: pts, Width: d.width, Height: d.height, PixFormat: "rgb24", Data: buf}
		pts++
	}
}

func (d *decoder) SendPacket(pkt codec.Packet) error {
	if pkt.IsEOS() {
		return d.proc.stdin.Close()
	}
	return writeFLVTag(d.proc.stdin, d.codecT, uint32(pkt.PTS), pkt.Data)
}

func (d *decoder) ReceiveFrame() (codec.Frame, error) {
	select {
	case f, ok := <-d.frames:
		if !ok {
			select {
			case err := <-d.errs:
				return codec.Frame{}, err
			default:
				return codec.Frame{}, io.EOF
			}
		}
		return f, nil
	case err := <-d.errs:
		return codec.Frame{}, err
	}
}

func (d *decoder) Close() error { return d.proc.Close() }

// scaler implements codec.Scaler by piping rgb24 frames through ffmpeg's
// bilinear scale filter, used when a decoded frame's native size differs
// from a mixing layout slot's declared width/height.
type scaler struct {
	proc        *process
	r           *bufio.Reader
	dstW, dstH  int
}

func openScaler(ctx context.Context, dstW, dstH int, interrupt codec.InterruptFunc) (codec.Scaler, error) {
	args := []string{
		"-v", "quiet",
		"-f", "rawvideo", "-pix_fmt", "rgb24", "-s", fmt.Sprintf("%dx%d", dstW, dstH), "-i", "pipe:0",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=bilinear", dstW, dstH),
		"-pix_fmt", "rgb24", "-f", "rawvideo", "pipe:1",
	}
	proc, err := startProcess(ctx, args, interrupt)
	if err != nil {
		return nil, err
	}
	return &scaler{proc: proc, r: bufio.NewReaderSize(proc.stdout, rgb24FrameSize(dstW, dstH)*2), dstW: dstW, dstH: dstH}, nil
}

func (s *scaler) Scale(src codec.Frame) (codec.Frame, error) {
	if _, err := s.proc.stdin.Write(src.Data); err != nil {
		return codec.Frame{}, err
	}
	buf := make([]byte, rgb24FrameSize(s.dstW, s.dstH))
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return codec.Frame{}, err
	}
	return codec.Frame{PTS: src.PTS, Width: s.dstW, Height: s.dstH, PixFormat: "rgb24", Data: buf}, nil
}

func (s *scaler) Close() error { return s.proc.Close() }

// encoder implements codec.Encoder by piping rgb24 frames into ffmpeg's
// video encoder and reading back FLV-tagged packets, used for the mixing
// engine's single composited output stream.
type encoder struct {
	proc   *process
	r      *bufio.Reader
	width  int
	height int
}

func openEncoder(ctx context.Context, width, height int, interrupt codec.InterruptFunc) (codec.Encoder, error) {
	args := []string{
		"-v", "quiet",
		"-f", "rawvideo", "-pix_fmt", "rgb24", "-s", fmt.Sprintf("%dx%d", width, height), "-r", "30", "-i", "pipe:0",
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-f", "flv", "pipe:1",
	}
	proc, err := startProcess(ctx, args, interrupt)
	if err != nil {
		return nil, err
	}
	e := &encoder{proc: proc, r: bufio.NewReaderSize(proc.stdout, 64*1024), width: width, height: height}
	if err := readFLVHeader(e.r); err != nil {
		_ = proc.Close()
		return nil, err
	}
	return e, nil
}

func (e *encoder) SendFrame(f codec.Frame) error {
	if f.IsEOS() {
		return e.proc.stdin.Close()
	}
	_, err := e.proc.stdin.Write(f.Data)
	return err
}

func (e *encoder) ReceiveEncoded() (codec.Packet, error) {
	tag, err := readFLVTag(e.r)
	if err != nil {
		return codec.Packet{}, err
	}
	return codec.Packet{StreamIndex: 0, PTS: int64(tag.Timestamp), DTS: int64(tag.Timestamp), Data: tag.Payload}, nil
}

func (e *encoder) Close() error { return e.proc.Close() }
