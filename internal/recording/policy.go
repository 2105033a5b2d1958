// Package recording implements stream-copy (no re-encode) recording of a
// live source to MP4 or HLS, following the original recording strategy
// split (HlmMp4RecordingStrategy / HlmHlsRecordingStrategy) while fixing the
// documented audio timestamp bug: every packet is rescaled using its OWN
// source stream's time base, never the video stream's, even though both
// share one muxer.
package recording

import (
	"fmt"
	"path/filepath"
)

const (
	MethodMP4 = "mp4"
	MethodHLS = "hls"
)

// Policy names the output container for a recording method.
type Policy interface {
	// OutputPath derives the destination file path from a base name
	// (without extension), appending the container's canonical extension.
	OutputPath(base string) string
}

type mp4Policy struct{}

func (mp4Policy) OutputPath(base string) string { return base + ".mp4" }

type hlsPolicy struct{}

func (hlsPolicy) OutputPath(base string) string { return base + ".m3u8" }

// NewPolicy resolves method to its Policy, validating it against the two
// supported recording strategies.
func NewPolicy(method string) (Policy, error) {
	switch method {
	case MethodMP4:
		return mp4Policy{}, nil
	case MethodHLS:
		return hlsPolicy{}, nil
	default:
		return nil, fmt.Errorf("recording: unknown method %q", method)
	}
}

// SafeBaseName mirrors the original recorder's filename sanitation: a
// stream key like "live/camera1" becomes a single path segment.
func SafeBaseName(streamKey string) string {
	return filepath.Base(streamKey)
}
