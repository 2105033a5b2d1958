package recording

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/metrics"
	"github.com/alxayo/go-mediaserver/internal/pipeline"
)

// Params carries a recording request's control-layer fields. Filename is
// the caller-supplied output name, already validated by the control layer
// to end in ".mp4" (mp4) or ".m3u8" (hls).
type Params struct {
	Method    string // mp4 / hls
	StreamURL string
	OutputDir string
	Filename  string
}

// Task is a taskmanager.Runner that stream-copies StreamURL into an MP4 or
// HLS file under OutputDir until the source ends or the task is cancelled.
type Task struct {
	params Params
	policy Policy
	cfg    pipeline.Config
}

func NewTask(params Params, cfg pipeline.Config) (*Task, error) {
	policy, err := NewPolicy(params.Method)
	if err != nil {
		return nil, err
	}
	return &Task{params: params, policy: policy, cfg: cfg}, nil
}

func (t *Task) Execute(ctx context.Context) error {
	wd := pipeline.NewWatchdog(t.cfg.Timeout)

	demux, err := codec.OpenDemuxer(ctx, t.params.StreamURL, wd.Interrupt())
	if err != nil {
		return fmt.Errorf("recording: open demuxer: %w", err)
	}

	name := t.params.Filename
	if name == "" {
		name = SafeBaseName(t.params.StreamURL)
	}
	base := filepath.Join(t.params.OutputDir, strings.TrimSuffix(name, filepath.Ext(name)))
	dest := t.policy.OutputPath(base)
	mux, err := codec.OpenMuxer(ctx, dest, wd.Interrupt())
	if err != nil {
		_ = demux.Close()
		return fmt.Errorf("recording: open muxer: %w", err)
	}

	handler := NewHandler(mux)
	sess := pipeline.NewWithWatchdog(t.cfg, demux, handler, wd)
	err = sess.Run(ctx)
	if sess.Aborted() {
		metrics.InterruptAbortsTotal.WithLabelValues("recording").Inc()
	}
	return err
}
