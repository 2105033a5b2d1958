package ffmpegexec

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"

	"github.com/alxayo/go-mediaserver/internal/codec"
)

// probeStream is the subset of ffprobe's JSON stream object this adapter
// cares about.
type probeStream struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	TimeBaseText string `json:"time_base"`
	PixFmt       string `json:"pix_fmt"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

func probe(ctx context.Context, url string) ([]codec.StreamInfo, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("ffprobe: parse output: %w", err)
	}

	streams := make([]codec.StreamInfo, 0, len(parsed.Streams))
	for _, s := range parsed.Streams {
		var kind codec.MediaKind
		switch s.CodecType {
		case "video":
			kind = codec.KindVideo
		case "audio":
			kind = codec.KindAudio
		default:
			continue
		}
		num, den := 1, 1000
		fmt.Sscanf(s.TimeBaseText, "%d/%d", &num, &den)
		streams = append(streams, codec.StreamInfo{
			Index:     s.Index,
			Kind:      kind,
			Codec:     s.CodecName,
			TimeBase:  codec.TimeBase{Num: num, Den: den},
			Width:     s.Width,
			Height:    s.Height,
			PixFormat: s.PixFmt,
		})
	}
	return streams, nil
}

// demuxer implements codec.Demuxer over a real ffmpeg subprocess doing a
// stream-copy remux to FLV on stdout, which this package already knows how
// to parse (flv.go). Used for file inputs to the recording and screenshot
// pipelines; rtmp:// inputs are instead handled in-process by
// internal/codec/rtmpio.
type demuxer struct {
	proc    *process
	r       *bufio.Reader
	streams []codec.StreamInfo
	lastTS  map[int]int64
}

func openDemuxer(ctx context.Context, url string, interrupt codec.InterruptFunc) (codec.Demuxer, error) {
	streams, err := probe(ctx, url)
	if err != nil {
		return nil, err
	}

	args := []string{"-v", "quiet", "-i", url, "-map", "0", "-c", "copy", "-f", "flv", "pipe:1"}
	proc, err := startProcess(ctx, args, interrupt)
	if err != nil {
		return nil, err
	}

	d := &demuxer{proc: proc, r: bufio.NewReaderSize(proc.stdout, 64*1024), streams: streams, lastTS: make(map[int]int64)}
	if err := readFLVHeader(d.r); err != nil {
		_ = proc.Close()
		return nil, err
	}
	return d, nil
}

func (d *demuxer) Streams() []codec.StreamInfo { return d.streams }

func (d *demuxer) streamIndexForTag(tagType byte) int {
	kind := kindForTagType(tagType)
	for _, s := range d.streams {
		if s.Kind == kind {
			return s.Index
		}
	}
	return -1
}

func (d *demuxer) ReadPacket(ctx context.Context) (codec.Packet, error) {
	type result struct {
		tag flvTag
		err error
	}
	done := make(chan result, 1)
	go func() {
		tag, err := readFLVTag(d.r)
		done <- result{tag, err}
	}()

	select {
	case <-ctx.Done():
		return codec.Packet{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			if res.err == io.EOF {
				return codec.Packet{}, io.EOF
			}
			return codec.Packet{}, fmt.Errorf("ffmpegexec: read packet: %w", res.err)
		}
		idx := d.streamIndexForTag(res.tag.TagType)
		ts := int64(res.tag.Timestamp)
		// FLV tags carry no explicit duration; derive it from the gap to
		// this stream's previous tag, same as ffmpeg's own FLV demuxer does
		// for a stream-copy remux. The first tag per stream has no prior
		// timestamp to diff against, so its duration is 0.
		var duration int64
		if last, ok := d.lastTS[idx]; ok {
			duration = ts - last
		}
		d.lastTS[idx] = ts
		return codec.Packet{
			StreamIndex: idx,
			PTS:         ts,
			DTS:         ts,
			Duration:    duration,
			Data:        res.tag.Payload,
		}, nil
	}
}

func (d *demuxer) Close() error {
	return d.proc.Close()
}
