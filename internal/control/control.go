package control

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alxayo/go-mediaserver/internal/mixing"
	"github.com/alxayo/go-mediaserver/internal/pipeline"
	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

// Controller wires the control surface's three task endpoints to a task manager.
// It holds no media-session state of its own; every request either starts,
// queues, updates, or stops a task through mgr.
type Controller struct {
	mgr         *taskmanager.Manager
	pipelineCfg pipeline.Config
	mixCfg      mixing.Config
	log         *slog.Logger
}

// New builds a Controller. log may be nil, in which case the package falls
// back to the process-wide default logger.
func New(mgr *taskmanager.Manager, pipelineCfg pipeline.Config, mixCfg mixing.Config, log *slog.Logger) *Controller {
	return &Controller{mgr: mgr, pipelineCfg: pipelineCfg, mixCfg: mixCfg, log: log}
}

// Register attaches every route this controller serves to e, including the
// ambient /healthz and /metrics endpoints. reg is the prometheus registry
// /metrics serves; pass prometheus.DefaultRegisterer's concrete *Registry,
// or a fresh one in tests.
func (ctl *Controller) Register(e *echo.Echo, reg *prometheus.Registry) {
	e.POST("/screenshot", ctl.handleScreenshot)
	e.POST("/recording", ctl.handleRecording)
	e.POST("/mix", ctl.handleMix)
	ctl.registerAmbient(e, reg)
}

func (ctl *Controller) logger() *slog.Logger {
	if ctl.log != nil {
		return ctl.log
	}
	return slog.Default()
}
