package mixing

import "fmt"

// NewTask validates params up front and returns the Engine as a
// taskmanager.Runner/Updater, so a malformed mix request is rejected at
// submission time rather than inside the worker goroutine.
func NewTask(params Params, cfg Config) (*Engine, error) {
	if params.OutputURL == "" {
		return nil, fmt.Errorf("mixing: output_url is required")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return nil, fmt.Errorf("mixing: resolution must be positive, got %dx%d", params.Width, params.Height)
	}
	return NewEngine(params, cfg), nil
}
