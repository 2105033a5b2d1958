package control

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

// admissionResponse turns a Submit outcome into the JSON reply, using
// kindLabel ("screenshot" / "recording" / "mixing") in the AlreadyRunning
// message the way each of the three original handlers phrases it.
func admissionResponse(c echo.Context, kindLabel string, result taskmanager.AdmissionResult) error {
	switch result {
	case taskmanager.Started:
		return success(c, fmt.Sprintf("%s task started.", capitalize(kindLabel)))
	case taskmanager.Queued:
		return queued(c, fmt.Sprintf("%s task queued, waiting for execution.", capitalize(kindLabel)))
	case taskmanager.AlreadyRunning:
		return invalidRequest(c, fmt.Sprintf("A %s task with the same stream URL and method is already running.", kindLabel))
	case taskmanager.QueueFull:
		return invalidRequest(c, "Task queue is full, unable to add task.")
	default:
		return invalidRequest(c, "Unable to admit task.")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
