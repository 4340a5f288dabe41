package xmem

import "github.com/zoobzio/capitan"

// Field keys for emitted events.
var (
	// KeyState is the current state.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyNavToken is the navigation generation the event belongs to.
	KeyNavToken = capitan.NewIntKey("nav_token")

	// KeyElapsed is how long the navigation or visual state lasted.
	KeyElapsed = capitan.NewDurationKey("elapsed")

	// KeyHold is how long a visual state is kept after a navigation finished.
	KeyHold = capitan.NewDurationKey("hold")

	// KeyDebounce is the configured debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyRoute is the route name being navigated to.
	KeyRoute = capitan.NewStringKey("route")

	// KeyRedirect is the route a guard redirected to.
	KeyRedirect = capitan.NewStringKey("redirect")

	// KeyToastID identifies a toast.
	KeyToastID = capitan.NewStringKey("toast_id")

	// KeyToastKind is the toast severity.
	KeyToastKind = capitan.NewStringKey("toast_kind")

	// KeyPromptKind is the style of a confirmation prompt.
	KeyPromptKind = capitan.NewStringKey("prompt_kind")

	// KeyConfirmed reports the outcome of a confirmation prompt.
	KeyConfirmed = capitan.NewStringKey("confirmed")
)
