package nodeclient

import "time"

// Timeouts holds the per-operation HTTP timeouts spec.md §6.2 requires,
// mirroring the teacher's per-subsystem Config structs (e.g. htlcswitch's
// forwarding-package timeouts) in shape: every field has a sane default and
// is independently overridable.
type Timeouts struct {
	GetHealth            time.Duration
	GetInfo              time.Duration
	GetTips              time.Duration
	GetMilestone         time.Duration
	PostMessage          time.Duration
	PostMessageRemotePoW time.Duration
	GetOutput            time.Duration
	GetAddress           time.Duration
	GetMessage           time.Duration
}

// DefaultTimeouts returns the spec.md §6.2 defaults: 2000ms for every
// operation except PostMessageRemotePoW, which defaults to 30000ms to give
// a node's own PoW search room to run.
func DefaultTimeouts() Timeouts {
	const std = 2000 * time.Millisecond
	return Timeouts{
		GetHealth:            std,
		GetInfo:              std,
		GetTips:              std,
		GetMilestone:         std,
		PostMessage:          std,
		PostMessageRemotePoW: 30000 * time.Millisecond,
		GetOutput:            std,
		GetAddress:           std,
		GetMessage:           std,
	}
}
