package control

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerAmbient wires the liveness and metrics endpoints that sit
// alongside the three task-control routes but carry none of their
// {code, message} response contract.
func (ctl *Controller) registerAmbient(e *echo.Echo, reg *prometheus.Registry) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
