package control

import (
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alxayo/go-mediaserver/internal/codec/ffmpegexec"
	"github.com/alxayo/go-mediaserver/internal/screenshot"
	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

type screenshotRequest struct {
	StreamURL       string  `json:"stream_url"`
	Method          string  `json:"method"`
	Action          string  `json:"action"`
	OutputDir       string  `json:"output_dir"`
	FilenamePrefix  string  `json:"filename_prefix"`
	Interval        float64 `json:"interval"`
	Percentage      float64 `json:"percentage"`
	SpecificTime    float64 `json:"specific_time"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func isRTMP(url string) bool { return strings.HasPrefix(url, "rtmp://") }

func (ctl *Controller) handleScreenshot(c echo.Context) error {
	var req screenshotRequest
	if err := c.Bind(&req); err != nil {
		return invalidJSON(c)
	}

	if missing := missingFields(
		field{"stream_url", req.StreamURL},
		field{"method", req.Method},
		field{"action", req.Action},
	); missing != "" {
		return invalidRequest(c, "Missing fields: "+missing)
	}

	switch req.Action {
	case "start":
		return ctl.startScreenshot(c, req)
	case "stop":
		if err := ctl.mgr.CancelByKey(req.StreamURL, req.Method); err != nil {
			return invalidRequest(c, "No running screenshot task found for this stream.")
		}
		return success(c, "Screenshot task stopped successfully.")
	default:
		return invalidRequest(c, "Invalid action. Valid actions are 'start' or 'stop'.")
	}
}

func (ctl *Controller) startScreenshot(c echo.Context, req screenshotRequest) error {
	switch req.Method {
	case screenshot.MethodPercentage, screenshot.MethodSpecificTime:
		if isRTMP(req.StreamURL) {
			return invalidRequest(c, "Percentage and specific time screenshot are not supported for streams.")
		}
	case screenshot.MethodImmediate:
		if !isRTMP(req.StreamURL) {
			return invalidRequest(c, "Immediate screenshot is only supported for streams.")
		}
	case screenshot.MethodInterval:
		// supported for both file and stream input.
	default:
		return invalidRequest(c, "Unknown screenshot method.")
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = baseNameOf(req.StreamURL)
	}
	prefix := req.FilenamePrefix
	if prefix == "" {
		prefix = baseNameOf(req.StreamURL)
	}

	params := screenshot.Params{
		Method:     req.Method,
		StreamURL:  req.StreamURL,
		OutputDir:  outputDir,
		Prefix:     prefix,
		Interval:   req.Interval,
		AtSeconds:  req.SpecificTime,
		Percentage: req.Percentage,
		Duration:   req.DurationSeconds,
	}
	if params.Method == screenshot.MethodPercentage && params.Duration == 0 {
		d, err := ffmpegexec.ProbeDuration(c.Request().Context(), req.StreamURL)
		if err != nil {
			return invalidRequest(c, "Unable to determine file duration for percentage screenshot.")
		}
		params.Duration = d
	}

	task, err := screenshot.NewTask(params, ctl.pipelineCfg)
	if err != nil {
		return invalidRequest(c, err.Error())
	}

	_, result, err := ctl.mgr.Submit(taskmanager.KindScreenshot, req.StreamURL, req.Method, task)
	if err != nil && result != taskmanager.AlreadyRunning && result != taskmanager.QueueFull {
		return invalidRequest(c, err.Error())
	}
	return admissionResponse(c, "screenshot", result)
}

func baseNameOf(url string) string {
	return filepath.Base(strings.TrimSuffix(url, "/"))
}

// field pairs a request field's name with its bound value, so
// missingFields can report which named fields were absent in request
// order rather than an arbitrary map iteration order.
type field struct {
	name, value string
}

// missingFields returns a comma-joined list of names whose value is empty,
// or "" if every field is present.
func missingFields(fields ...field) string {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return strings.Join(missing, ", ")
}
