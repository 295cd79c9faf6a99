package camera

import (
	"fmt"
	"strings"
)

// TriggerMode is the acquisition trigger regime.
type TriggerMode int

const (
	// TriggerUnknown means a reconfiguration failed part way and the
	// camera's trigger attributes are in an indeterminate mix.
	TriggerUnknown TriggerMode = iota
	TriggerFreeRun
	TriggerSoftware
	TriggerHardware
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerFreeRun:
		return "free_run"
	case TriggerSoftware:
		return "software"
	case TriggerHardware:
		return "hardware"
	default:
		return "unknown"
	}
}

// ParseTriggerMode accepts the names produced by TriggerMode.String.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free_run", "freerun", "off":
		return TriggerFreeRun, nil
	case "software":
		return TriggerSoftware, nil
	case "hardware", "line", "line1":
		return TriggerHardware, nil
	}
	return TriggerUnknown, paramErr("unknown trigger mode %q", s)
}

// Edge is the hardware trigger activation.
type Edge string

const (
	EdgeRising  Edge = "RisingEdge"
	EdgeFalling Edge = "FallingEdge"
)

// ParseEdge accepts "RisingEdge"/"FallingEdge" or "rising"/"falling".
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "risingedge", "rising":
		return EdgeRising, nil
	case "fallingedge", "falling":
		return EdgeFalling, nil
	}
	return "", paramErr("unknown trigger edge %q", s)
}

// Trigger symbols.
const (
	triggerOff         = "Off"
	triggerOn          = "On"
	sourceSoftware     = "Software"
	sourceLine1        = "Line1"
	selectorFrameStart = "FrameStart"
)

type triggerStep struct {
	attr   string
	symbol string
}

// Trigger configures one camera's trigger regime. Each procedure applies
// its steps in order, one node transaction per step, and stops at the first
// failure without rolling back earlier steps.
type Trigger struct {
	props *Properties
}

// NewTrigger creates a trigger configurator over props.
func NewTrigger(props *Properties) *Trigger {
	return &Trigger{props: props}
}

func (t *Trigger) apply(steps []triggerStep) error {
	for i, s := range steps {
		if err := t.props.SetEnum(s.attr, s.symbol); err != nil {
			return fmt.Errorf("trigger step %d/%d (%s=%s): %w", i+1, len(steps), s.attr, s.symbol, err)
		}
	}
	return nil
}

// FreeRun switches the trigger mode off for continuous acquisition.
func (t *Trigger) FreeRun() error {
	return t.apply([]triggerStep{
		{AttrTriggerMode, triggerOff},
	})
}

// Software arms software triggering on frame start.
func (t *Trigger) Software() error {
	return t.apply([]triggerStep{
		{AttrTriggerSource, sourceSoftware},
		{AttrTriggerSelector, selectorFrameStart},
		{AttrTriggerMode, triggerOn},
	})
}

// Hardware arms the Line1 input on frame start with the given edge.
func (t *Trigger) Hardware(edge Edge) error {
	if edge == "" {
		edge = EdgeRising
	}
	return t.apply([]triggerStep{
		{AttrTriggerSource, sourceLine1},
		{AttrTriggerSelector, selectorFrameStart},
		{AttrTriggerMode, triggerOn},
		{AttrTriggerActivation, string(edge)},
	})
}

// Fire executes the software trigger command once. The caller is
// responsible for having configured software triggering.
func (t *Trigger) Fire() error {
	return t.props.Execute(AttrTriggerSoftware)
}
