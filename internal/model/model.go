package model

import (
	"errors"
	"fmt"
)

// Mode selects which graphics adapter the display server should use.
// ModeAuto is a resolution directive, never a terminal state: it is
// always resolved to ModeExternal or ModeInternal before any filesystem
// action.
type Mode int

const (
	ModeAuto Mode = iota
	ModeExternal
	ModeInternal
)

var ErrUnknownMode = errors.New("unknown mode")

// ParseMode maps the command-line mode words onto Mode values.
func ParseMode(text string) (Mode, error) {
	switch text {
	case "auto":
		return ModeAuto, nil
	case "egpu":
		return ModeExternal, nil
	case "internal":
		return ModeInternal, nil
	}
	return ModeAuto, fmt.Errorf("%w: %q (expected auto, egpu or internal)", ErrUnknownMode, text)
}

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeExternal:
		return "egpu"
	case ModeInternal:
		return "internal"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Reason records how a switch decision was reached.
type Reason int

const (
	ReasonUserRequested Reason = iota
	ReasonAutoDetectedPresent
	ReasonAutoDetectedAbsent
	ReasonOverrideForcedExternal
	ReasonNoUsableOutputFallback
)

func (r Reason) String() string {
	switch r {
	case ReasonUserRequested:
		return "user requested"
	case ReasonAutoDetectedPresent:
		return "external adapter detected"
	case ReasonAutoDetectedAbsent:
		return "external adapter not detected"
	case ReasonOverrideForcedExternal:
		return "override forced external"
	case ReasonNoUsableOutputFallback:
		return "no usable output, falling back"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Decision is the resolver's immutable output, consumed exactly once by
// the filesystem-action step. Mode is never ModeAuto.
type Decision struct {
	Mode   Mode   `json:"mode"`
	Reason Reason `json:"-"`
}

// Connectivity summarizes the DRM connector status files under the
// external adapter's card directory.
type Connectivity struct {
	Outputs      int
	Disconnected int
}

// AllDisconnected reports whether every enumerated output claims no
// display is attached. Some open-source drivers cannot see displays
// through certain eGPU enclosures, so this can be a false signal; the
// operator override exists for exactly that case.
func (c Connectivity) AllDisconnected() bool {
	return c.Outputs > 0 && c.Disconnected == c.Outputs
}

// RemovalFailure classifies why a hot-removal attempt did not complete.
type RemovalFailure int

const (
	FailureNone RemovalFailure = iota
	FailureDriverBusy
	FailureDeviceNodeMissing
)

func (f RemovalFailure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureDriverBusy:
		return "driver busy"
	case FailureDeviceNodeMissing:
		return "device node missing"
	}
	return fmt.Sprintf("failure(%d)", int(f))
}

// RemovalOutcome is the hot-removal orchestrator's result. Whatever the
// outcome, the display manager has been restarted by the time the caller
// sees it.
type RemovalOutcome struct {
	Succeeded bool
	Failure   RemovalFailure
}
