package screenshot

import (
	"context"
	"fmt"

	"github.com/alxayo/go-mediaserver/internal/codec"
	"github.com/alxayo/go-mediaserver/internal/metrics"
	"github.com/alxayo/go-mediaserver/internal/pipeline"
)

// Method names accepted by the control surface for a screenshot request,
// matching HlmScreenshotMethod's method-name constants.
const (
	MethodInterval     = "interval"
	MethodPercentage   = "percentage"
	MethodImmediate    = "immediate"
	MethodSpecificTime = "specific_time"
)

// Params carries the per-method parameters a control request supplies.
// Exactly the fields relevant to Method are consulted; the rest are ignored.
type Params struct {
	Method     string
	StreamURL  string
	OutputDir  string
	Prefix     string
	Width      int
	Height     int
	Interval   float64
	Percentage float64
	Duration   float64
	AtSeconds  float64
}

// BuildPolicy constructs the Policy named by Params.Method, validating its
// method-specific parameters the way HlmScreenshotStrategyFactory does.
func BuildPolicy(p Params) (Policy, error) {
	switch p.Method {
	case MethodInterval:
		return NewIntervalPolicy(p.Interval)
	case MethodPercentage:
		return NewPercentagePolicy(p.Percentage, p.Duration)
	case MethodImmediate:
		return NewImmediatePolicy()
	case MethodSpecificTime:
		return NewSpecificTimePolicy(p.AtSeconds)
	default:
		return nil, fmt.Errorf("screenshot: unknown method %q", p.Method)
	}
}

// Task is a taskmanager.Runner that captures screenshots from Params.StreamURL
// according to its policy until the policy reports ShouldStop or the task is
// cancelled.
type Task struct {
	params Params
	policy Policy
	cfg    pipeline.Config
}

// NewTask validates params (including building its Policy) up front, so a
// malformed request is rejected at submission time rather than inside the
// worker goroutine.
func NewTask(params Params, cfg pipeline.Config) (*Task, error) {
	policy, err := BuildPolicy(params)
	if err != nil {
		return nil, err
	}
	return &Task{params: params, policy: policy, cfg: cfg}, nil
}

func (t *Task) Execute(ctx context.Context) error {
	sess, err := t.buildSession(ctx)
	if err != nil {
		return err
	}
	err = sess.Run(ctx)
	if sess.Aborted() {
		metrics.InterruptAbortsTotal.WithLabelValues("screenshot").Inc()
	}
	return err
}

func (t *Task) buildSession(ctx context.Context) (*pipeline.Session, error) {
	wd := pipeline.NewWatchdog(t.cfg.Timeout)
	demux, err := codec.OpenDemuxer(ctx, t.params.StreamURL, wd.Interrupt())
	if err != nil {
		return nil, fmt.Errorf("screenshot: open demuxer: %w", err)
	}

	var sess *pipeline.Session
	handler := NewHandler(ctx, t.policy, t.params.OutputDir, t.params.Prefix, t.params.Width, t.params.Height, func() {
		if sess != nil {
			sess.Stop()
		}
	})
	sess = pipeline.NewWithWatchdog(t.cfg, demux, handler, wd)
	return sess, nil
}
