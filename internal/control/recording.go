package control

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alxayo/go-mediaserver/internal/recording"
	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

type recordingRequest struct {
	StreamURL string `json:"stream_url"`
	Method    string `json:"method"`
	Action    string `json:"action"`
	OutputDir string `json:"output_dir"`
	Filename  string `json:"filename_name"`
}

func (ctl *Controller) handleRecording(c echo.Context) error {
	var req recordingRequest
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
		return ctl.startRecording(c, req)
	case "stop":
		if err := ctl.mgr.CancelByKey(req.StreamURL, req.Method); err != nil {
			return invalidRequest(c, "No running recording task found for this stream.")
		}
		return success(c, "Recording task stopped successfully.")
	default:
		return invalidRequest(c, "Invalid action. Valid actions are 'start' or 'stop'.")
	}
}

func (ctl *Controller) startRecording(c echo.Context, req recordingRequest) error {
	if req.Filename == "" {
		return invalidRequest(c, "Missing fields: filename_name")
	}
	if !strings.HasSuffix(req.Filename, ".mp4") && !strings.HasSuffix(req.Filename, ".m3u8") {
		return invalidRequest(c, "Filename must end with .mp4 or .m3u8.")
	}
	if !isRTMP(req.StreamURL) {
		return invalidRequest(c, "Recording is only supported for streams.")
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = baseNameOf(req.StreamURL)
	}

	task, err := recording.NewTask(recording.Params{
		Method:    req.Method,
		StreamURL: req.StreamURL,
		OutputDir: outputDir,
		Filename:  req.Filename,
	}, ctl.pipelineCfg)
	if err != nil {
		return invalidRequest(c, err.Error())
	}

	_, result, err := ctl.mgr.Submit(taskmanager.KindRecording, req.StreamURL, req.Method, task)
	if err != nil && result != taskmanager.AlreadyRunning && result != taskmanager.QueueFull {
		return invalidRequest(c, err.Error())
	}
	return admissionResponse(c, "recording", result)
}
