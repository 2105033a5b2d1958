package ffmpegexec

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/alxayo/go-mediaserver/internal/codec"
)

// muxer implements codec.Muxer by feeding FLV tags to an ffmpeg subprocess
// that remuxes (stream-copy, no re-encode) into the container implied by the
// destination's extension: .mp4 for MP4 recordings, .m3u8 for HLS.
type muxer struct {
	proc       *process
	streams    []codec.StreamInfo
	headerSent bool
	hasAudio   bool
	hasVideo   bool
}

func openMuxer(ctx context.Context, dest string, interrupt codec.InterruptFunc) (codec.Muxer, error) {
	format, extra := outputFormat(dest)
	args := append([]string{"-v", "quiet", "-f", "flv", "-i", "pipe:0", "-c", "copy"}, extra...)
	args = append(args, "-f", format, dest)

	proc, err := startProcess(ctx, args, interrupt)
	if err != nil {
		return nil, err
	}
	return &muxer{proc: proc}, nil
}

// hlsSegmentSeconds is the target duration of each .ts segment, matching
// the original HLS recording strategy's segment length.
const hlsSegmentSeconds = 5

func outputFormat(dest string) (format string, extraArgs []string) {
	u, _ := url.Parse(dest)
	path := dest
	if u != nil && u.Path != "" {
		path = u.Path
	}
	switch {
	case strings.HasSuffix(path, ".m3u8"):
		segmentPattern := strings.TrimSuffix(dest, ".m3u8") + "_%03d.ts"
		return "hls", []string{
			"-hls_time", fmt.Sprintf("%d", hlsSegmentSeconds),
			"-hls_list_size", "0",
			"-hls_segment_filename", segmentPattern,
		}
	default:
		return "mp4", []string{"-movflags", "+faststart"}
	}
}

func (m *muxer) AddStream(info codec.StreamInfo) (int, error) {
	idx := len(m.streams)
	m.streams = append(m.streams, info)
	switch info.Kind {
	case codec.KindAudio:
		m.hasAudio = true
	case codec.KindVideo:
		m.hasVideo = true
	}
	return idx, nil
}

func (m *muxer) WriteHeader() error {
	if m.headerSent {
		return nil
	}
	m.headerSent = true
	return writeFLVHeader(m.proc.stdin, m.hasAudio, m.hasVideo)
}

func (m *muxer) tagTypeForStream(idx int) (byte, error) {
	if idx < 0 || idx >= len(m.streams) {
		return 0, fmt.Errorf("ffmpegexec: unknown output stream index %d", idx)
	}
	switch m.streams[idx].Kind {
	case codec.KindVideo:
		return tagTypeVideo, nil
	case codec.KindAudio:
		return tagTypeAudio, nil
	default:
		return 0, fmt.Errorf("ffmpegexec: stream %d has no media kind", idx)
	}
}

func (m *muxer) WritePacket(pkt codec.Packet) error {
	if !m.headerSent {
		if err := m.WriteHeader(); err != nil {
			return err
		}
	}
	tagType, err := m.tagTypeForStream(pkt.StreamIndex)
	if err != nil {
		return err
	}
	return writeFLVTag(m.proc.stdin, tagType, uint32(pkt.PTS), pkt.Data)
}

// WriteTrailer closes stdin so ffmpeg flushes and finalizes the container,
// then waits for the process to exit.
func (m *muxer) WriteTrailer() error {
	return m.proc.Close()
}

func (m *muxer) Close() error {
	return m.proc.Close()
}
