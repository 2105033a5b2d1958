package control

import (
	"github.com/labstack/echo/v4"

	"github.com/alxayo/go-mediaserver/internal/mixing"
	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

type mixStreamRequest struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	ZIndex int    `json:"z-index"`
}

type mixResolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type mixRequest struct {
	OutputURL       string             `json:"output_url"`
	Action          string             `json:"action"`
	Streams         []mixStreamRequest `json:"streams"`
	Resolution      mixResolution      `json:"resolution"`
	BackgroundImage string             `json:"background_image"`
}

// parseStreams converts the request's stream elements into mixing.Stream
// values, silently skipping any element missing a required field or whose
// url is not an rtmp:// source, matching the control contract's documented
// "elements missing any are silently skipped" behavior.
func parseStreams(raw []mixStreamRequest) []mixing.Stream {
	out := make([]mixing.Stream, 0, len(raw))
	for _, s := range raw {
		if s.ID == "" || s.URL == "" || s.Width == 0 || s.Height == 0 {
			continue
		}
		if !isRTMP(s.URL) {
			continue
		}
		out = append(out, mixing.Stream{
			ID: s.ID, URL: s.URL, Width: s.Width, Height: s.Height,
			X: s.X, Y: s.Y, ZIndex: s.ZIndex,
		})
	}
	return out
}

func (ctl *Controller) handleMix(c echo.Context) error {
	var req mixRequest
	if err := c.Bind(&req); err != nil {
		return invalidJSON(c)
	}

	if missing := missingFields(
		field{"output_url", req.OutputURL},
		field{"action", req.Action},
	); missing != "" {
		return invalidRequest(c, "Missing fields: "+missing)
	}
	if len(req.Streams) == 0 {
		return invalidRequest(c, "Missing fields: streams")
	}

	switch req.Action {
	case "start":
		return ctl.startMix(c, req)
	case "update":
		return ctl.updateMix(c, req)
	default:
		return invalidRequest(c, "Invalid action. Valid actions are 'start' or 'update'.")
	}
}

func (ctl *Controller) startMix(c echo.Context, req mixRequest) error {
	if !isRTMP(req.OutputURL) {
		return invalidRequest(c, "Mixing is only supported for RTMP streams.")
	}
	if req.Resolution.Width <= 0 || req.Resolution.Height <= 0 {
		return invalidRequest(c, "Resolution dimensions must be positive integers.")
	}

	streams := parseStreams(req.Streams)

	task, err := mixing.NewTask(mixing.Params{
		OutputURL:       req.OutputURL,
		Width:           req.Resolution.Width,
		Height:          req.Resolution.Height,
		BackgroundImage: req.BackgroundImage,
		Streams:         streams,
	}, ctl.mixCfg)
	if err != nil {
		return invalidRequest(c, "Failed to parse mixing parameters.")
	}

	_, result, err := ctl.mgr.Submit(taskmanager.KindMix, req.OutputURL, "", task)
	if err != nil && result != taskmanager.AlreadyRunning && result != taskmanager.QueueFull {
		return invalidRequest(c, err.Error())
	}
	return admissionResponse(c, "mixing", result)
}

func (ctl *Controller) updateMix(c echo.Context, req mixRequest) error {
	if !isRTMP(req.OutputURL) {
		return invalidRequest(c, "Mixing is only supported for RTMP streams.")
	}

	streams := parseStreams(req.Streams)
	if len(streams) == 0 {
		return invalidRequest(c, "Missing fields: 'streams'")
	}

	if err := ctl.mgr.UpdateByKey(req.OutputURL, "", mixing.Params{Streams: streams}); err != nil {
		return invalidRequest(c, "No active mixing task found for this output URL.")
	}
	return success(c, "Mixing updated successfully")
}
