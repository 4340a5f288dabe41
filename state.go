package xmem

// State is the visual mode of a route transition.
type State int32

const (
	// StateIdle shows no navigation feedback.
	StateIdle State = iota

	// StateBar shows the thin progress bar. Entered once a navigation has
	// been pending for longer than the bar threshold.
	StateBar

	// StateLoading shows the full loading overlay. Entered once a navigation
	// has been pending for longer than the loading threshold.
	StateLoading
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBar:
		return "bar"
	case StateLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// ReloadState represents the current state of a TimingReloader.
type ReloadState int32

const (
	// ReloadLoading indicates the reloader has not yet processed any timing.
	ReloadLoading ReloadState = iota

	// ReloadHealthy indicates a valid timing has been applied.
	ReloadHealthy

	// ReloadDegraded indicates the last change failed. The previous timing
	// remains in effect.
	ReloadDegraded

	// ReloadEmpty indicates the initial load failed and no valid timing was
	// ever applied. The controller keeps its defaults.
	ReloadEmpty
)

// String returns the string representation of the reload state.
func (s ReloadState) String() string {
	switch s {
	case ReloadLoading:
		return "loading"
	case ReloadHealthy:
		return "healthy"
	case ReloadDegraded:
		return "degraded"
	case ReloadEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
