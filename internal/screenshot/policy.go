// Package screenshot implements the four screenshot-save policies (interval,
// percentage, immediate, specific time) and the PNG writer that turns a
// decoded frame into an output file. The save/stop predicates below are
// authoritative per the save-predicate table: each is keyed off
// frame_time = packet.pts * time_base.num/time_base.den, never wall clock.
package screenshot

import "fmt"

// Policy decides, from the running stream of frame times, which frames to
// save and when the task is done. ShouldSave is called once per video
// packet, in increasing frame_time order, before the packet is decoded;
// ShouldStop is consulted after it for that same packet.
type Policy interface {
	ShouldSave(frameTime float64) bool
	ShouldStop() bool
}

// intervalPolicy saves one frame every interval seconds, forever (until
// cancelled), grounded on HlmIntervalScreenshotStrategy's validation that
// interval must be positive.
type intervalPolicy struct {
	interval float64
	next     float64
}

// NewIntervalPolicy validates interval > 0, mirroring the original
// strategy's invalid_argument check.
func NewIntervalPolicy(interval float64) (Policy, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("screenshot: interval must be > 0, got %v", interval)
	}
	return &intervalPolicy{interval: interval, next: 0}, nil
}

func (p *intervalPolicy) ShouldSave(frameTime float64) bool {
	if frameTime < p.next {
		return false
	}
	p.next += p.interval
	return true
}

func (p *intervalPolicy) ShouldStop() bool { return false }

// percentagePolicy saves a frame every time another pct percentage-points of
// the stream's total duration have elapsed: (frame_time/durationSeconds)*100
// - lastSavedPct >= pct. Like intervalPolicy but in percent-of-duration
// units, and it runs to EOF rather than stopping after one save, mirroring
// HlmPercentageScreenshotStrategy's repeating behavior.
type percentagePolicy struct {
	pct             float64 // threshold, percentage-points
	durationSeconds float64
	lastSavedPct    float64
}

func NewPercentagePolicy(pct float64, durationSeconds float64) (Policy, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("screenshot: duration must be > 0, got %v", durationSeconds)
	}
	if pct <= 0 || pct > 100 {
		return nil, fmt.Errorf("screenshot: percentage must be within (0,100], got %v", pct)
	}
	return &percentagePolicy{pct: pct, durationSeconds: durationSeconds, lastSavedPct: -pct}, nil
}

func (p *percentagePolicy) ShouldSave(frameTime float64) bool {
	progressPct := (frameTime / p.durationSeconds) * 100
	if progressPct-p.lastSavedPct < p.pct {
		return false
	}
	p.lastSavedPct = progressPct
	return true
}

func (p *percentagePolicy) ShouldStop() bool { return false }

// immediatePolicy saves exactly the first frame it sees, then stops.
// Grounded on HlmImmediateScreenshotStrategy, which takes no parameters.
type immediatePolicy struct {
	saved bool
}

func NewImmediatePolicy() (Policy, error) {
	return &immediatePolicy{}, nil
}

func (p *immediatePolicy) ShouldSave(frameTime float64) bool {
	if p.saved {
		return false
	}
	p.saved = true
	return true
}

func (p *immediatePolicy) ShouldStop() bool { return p.saved }

// specificTimePolicy saves the first frame at or after atSeconds, then
// stops. Grounded on HlmSpecificTimeScreenshotStrategy's validation that the
// requested time must be non-negative.
type specificTimePolicy struct {
	at   float64
	done bool
}

func NewSpecificTimePolicy(atSeconds float64) (Policy, error) {
	if atSeconds < 0 {
		return nil, fmt.Errorf("screenshot: specific time must be >= 0, got %v", atSeconds)
	}
	return &specificTimePolicy{at: atSeconds}, nil
}

func (p *specificTimePolicy) ShouldSave(frameTime float64) bool {
	if p.done || frameTime < p.at {
		return false
	}
	p.done = true
	return true
}

func (p *specificTimePolicy) ShouldStop() bool { return p.done }
