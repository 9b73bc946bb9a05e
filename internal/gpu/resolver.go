// Package gpu decides which adapter should drive the display and
// orchestrates safe hot-removal of the external one.
package gpu

import (
	"errors"

	"github.com/zenithax-cc/egpuctl/internal/model"
)

// ProprietaryDriver is the closed-source NVIDIA driver. Its output
// detection works through eGPU enclosures, so the connectivity fallback
// does not apply to it, and its kernel side is a multi-module stack with
// its own unload ordering.
const ProprietaryDriver = "nvidia"

// ErrConfigurationMissing reports that neither xorg artifact exists, so
// there is nothing a switch could activate.
var ErrConfigurationMissing = errors.New("no xorg configuration artifacts found, run 'egpuctl setup' first")

// ResolveInput carries the precomputed facts the state machine runs on.
// Presence comes from the poller, connectivity from the connector scan
// (nil when the scan was skipped, as it is for the proprietary driver).
type ResolveInput struct {
	Requested model.Mode
	Override  bool

	HardwarePresent bool
	ExternalDriver  string
	Connectivity    *model.Connectivity

	ExternalArtifact bool
	InternalArtifact bool
}

// Resolve runs the mode state machine. Rules, in order:
//
//  1. Auto resolves to External when the hardware is present, Internal
//     otherwise.
//  2. External with a non-proprietary driver downgrades to Internal when
//     every enumerated output reports disconnected, unless the override
//     flag keeps it External.
//  3. Anything else stands as requested.
//
// The returned decision never carries ModeAuto.
func Resolve(in ResolveInput) (model.Decision, error) {
	if !in.ExternalArtifact && !in.InternalArtifact {
		return model.Decision{}, ErrConfigurationMissing
	}

	mode := in.Requested
	reason := model.ReasonUserRequested

	if mode == model.ModeAuto {
		if in.HardwarePresent {
			mode, reason = model.ModeExternal, model.ReasonAutoDetectedPresent
		} else {
			mode, reason = model.ModeInternal, model.ReasonAutoDetectedAbsent
		}
	}

	if mode == model.ModeExternal && in.ExternalDriver != ProprietaryDriver &&
		in.Connectivity != nil && in.Connectivity.AllDisconnected() {
		if in.Override {
			reason = model.ReasonOverrideForcedExternal
		} else {
			mode, reason = model.ModeInternal, model.ReasonNoUsableOutputFallback
		}
	}

	return model.Decision{Mode: mode, Reason: reason}, nil
}
