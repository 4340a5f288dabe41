package xmem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
)

// MaxRedirects bounds how many times guards may redirect a single navigation.
const MaxRedirects = 10

// Navigation errors.
var (
	ErrRouteNotFound        = errors.New("route not found")
	ErrTooManyRedirects     = errors.New("too many guard redirects")
	ErrNavigationSuperseded = errors.New("navigation superseded")
	ErrHistoryEmpty         = errors.New("navigation history is empty")
)

// Resolver loads the view for a route. It may take arbitrarily long; the
// Navigator drives the transition controller while it runs.
type Resolver func(ctx context.Context, params Params) (any, error)

// Guard runs before a navigation resolves. Returning a non-empty route name
// redirects the navigation there; returning "" lets it proceed. From is nil
// on the first navigation.
type Guard func(ctx context.Context, to Location, from *Location) string

// Navigator resolves named routes and reports every navigation to a
// Controller: StartTransition before resolving, FinishTransition on success,
// ResetTransition on failure.
//
// Only the most recent navigation may commit. A navigation that is
// superseded while its resolver runs returns ErrNavigationSuperseded and
// leaves both the history and the controller untouched.
type Navigator struct {
	ctrl    *Controller
	counter RouteLoadingCounter

	mu      sync.Mutex
	routes  map[string]Resolver
	guards  []Guard
	history *Stack
	current *Location
	gen     uint64
	commits uint64
}

// NewNavigator creates a Navigator that drives ctrl.
//
// Example:
//
//	nav := xmem.NewNavigator(ctrl).
//	    Register("notes", loadNotes).
//	    Register("note-view", loadNote).
//	    BeforeEach(xmem.RequireSession(session.Token, "home"))
//
//	loc, err := nav.Navigate(ctx, "note-view", xmem.Params{"noteId": "42"})
func NewNavigator(ctrl *Controller) *Navigator {
	return &Navigator{
		ctrl:    ctrl,
		routes:  make(map[string]Resolver),
		history: NewStack(),
	}
}

// Register adds a route.
func (n *Navigator) Register(route string, fn Resolver) *Navigator {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[route] = fn
	return n
}

// BeforeEach adds a guard. Guards run in registration order; the first
// redirect wins.
func (n *Navigator) BeforeEach(g Guard) *Navigator {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.guards = append(n.guards, g)
	return n
}

// Navigate resolves route and, on success, makes it the current location,
// pushing the previous one onto the history.
func (n *Navigator) Navigate(ctx context.Context, route string, params Params) (Location, error) {
	return n.navigate(ctx, Location{Route: route, Params: params}, false, 0)
}

// Back navigates to the most recent history entry without pushing the
// current location. The entry leaves the history only when the navigation
// commits, so a failed or superseded Back leaves the history as it was.
func (n *Navigator) Back(ctx context.Context) (Location, error) {
	n.mu.Lock()
	prev := n.history.Peek()
	commits := n.commits
	n.mu.Unlock()

	if prev == nil {
		return Location{}, ErrHistoryEmpty
	}
	return n.navigate(ctx, Location{Route: prev.Route, Params: prev.Params}, true, commits)
}

// CanGoBack reports whether Back has an entry to return to.
func (n *Navigator) CanGoBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.history.IsEmpty()
}

// Previous returns the entry Back would navigate to.
func (n *Navigator) Previous() (Location, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	prev := n.history.Peek()
	if prev == nil {
		return Location{}, false
	}
	return *prev, true
}

// Depth returns the number of history entries.
func (n *Navigator) Depth() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.history.Len()
}

// ClearHistory drops every history entry and keeps the current location,
// e.g. after logout redirects to the home page.
func (n *Navigator) ClearHistory() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.history.Clear()
}

// Current returns the current location, or false before the first
// successful navigation.
func (n *Navigator) Current() (Location, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Location{}, false
	}
	return *n.current, true
}

// History returns the back-navigation history, oldest first.
func (n *Navigator) History() []Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.history.Entries()
}

// InFlight returns how many resolvers are currently running.
func (n *Navigator) InFlight() int {
	return n.counter.Count()
}

// Loading reports whether any resolver is running.
func (n *Navigator) Loading() bool {
	return n.counter.Loading()
}

// navigate runs guards, resolves and commits. A back navigation pops the
// history entry it came from on commit; seen is the commit count when that
// entry was read.
func (n *Navigator) navigate(ctx context.Context, to Location, back bool, seen uint64) (Location, error) {
	n.mu.Lock()
	var from *Location
	if n.current != nil {
		cur := *n.current
		from = &cur
	}
	guards := make([]Guard, len(n.guards))
	copy(guards, n.guards)
	n.mu.Unlock()

	target, err := n.runGuards(ctx, guards, to, from)
	if err != nil {
		return Location{}, err
	}

	n.mu.Lock()
	resolve, ok := n.routes[target.Route]
	if !ok {
		n.mu.Unlock()
		return Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, target.Route)
	}
	if back && n.commits != seen {
		// History moved under us; the entry read by Back is stale
		n.mu.Unlock()
		return Location{}, fmt.Errorf("%w: %s", ErrNavigationSuperseded, target.Route)
	}
	n.gen++
	gen := n.gen
	n.ctrl.StartTransition()
	n.mu.Unlock()

	n.counter.Start()
	view, err := resolve(ctx, target.Params)
	n.counter.Stop()

	n.mu.Lock()
	if gen != n.gen {
		n.mu.Unlock()
		return Location{}, fmt.Errorf("%w: %s", ErrNavigationSuperseded, target.Route)
	}

	if err != nil {
		n.ctrl.ResetTransition()
		n.mu.Unlock()
		capitan.Emit(ctx, NavigationFailed,
			KeyRoute.Field(target.Route),
			KeyError.Field(err.Error()),
		)
		return Location{}, fmt.Errorf("resolve %s: %w", target.Route, err)
	}

	target.View = view
	if back {
		n.history.Pop()
	} else if n.current != nil {
		n.history.Push(*n.current)
	}
	n.current = &target
	n.commits++
	n.ctrl.FinishTransition()
	n.mu.Unlock()

	capitan.Emit(ctx, NavigationCommitted,
		KeyRoute.Field(target.Route),
	)
	return target, nil
}

// runGuards applies guards until none redirects.
func (n *Navigator) runGuards(ctx context.Context, guards []Guard, to Location, from *Location) (Location, error) {
	for i := 0; i <= MaxRedirects; i++ {
		redirect := ""
		for _, g := range guards {
			if r := g(ctx, to, from); r != "" && r != to.Route {
				redirect = r
				break
			}
		}
		if redirect == "" {
			return to, nil
		}
		capitan.Emit(ctx, NavigationRedirected,
			KeyRoute.Field(to.Route),
			KeyRedirect.Field(redirect),
		)
		to = Location{Route: redirect}
	}
	return Location{}, fmt.Errorf("%w: %s", ErrTooManyRedirects, to.Route)
}

// RequireSession returns a guard that redirects every navigation to home
// while token reports no session.
func RequireSession(token func() string, home string) Guard {
	return func(_ context.Context, to Location, _ *Location) string {
		if token() == "" && to.Route != home {
			return home
		}
		return ""
	}
}
