package screen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mockhire/mockhire/internal/identity"
	"github.com/mockhire/mockhire/internal/session"
)

// Kind names a page.
type Kind string

const (
	KindHome      Kind = "home"
	KindDashboard Kind = "dashboard"
	KindInterview Kind = "interview"
	KindResults   Kind = "results"
	KindRole      Kind = "role"
	KindContact   Kind = "contact"
	KindFeedback  Kind = "feedback"
	KindAbout     Kind = "about"
	KindFAQ       Kind = "faq"

	// KindBack returns to the dashboard when signed in and to the home page
	// otherwise.
	KindBack Kind = "back"

	// KindExit ends [Router.Run].
	KindExit Kind = "exit"
)

// protected pages require a signed-in user.
var protected = map[Kind]bool{
	KindDashboard: true,
	KindInterview: true,
	KindResults:   true,
	KindRole:      true,
}

// Route is a page plus the navigation state it is opened with.
type Route struct {
	Kind Kind

	// Interview is set for [KindInterview].
	Interview session.InterviewRoute

	// Results is set for [KindResults].
	Results session.ResultsRoute

	// Role is the raw role title for [KindRole].
	Role string
}

// Screen shows one page until the user leaves it.
type Screen interface {
	Show(ctx context.Context, r Route) (Route, error)
}

// ScreenFunc adapts a function to [Screen].
type ScreenFunc func(ctx context.Context, r Route) (Route, error)

// Show calls f.
func (f ScreenFunc) Show(ctx context.Context, r Route) (Route, error) { return f(ctx, r) }

// Navigator is what the interview page needs from the router: a place to
// send controller navigation and a channel to receive it from.
type Navigator interface {
	session.Navigator
	Redirects() <-chan Route
}

// Router runs the page loop.
//
// Router implements [session.Navigator]: navigation requested by a session
// controller is queued and picked up by the page currently showing. Only the
// latest request is kept.
type Router struct {
	console  *Console
	signedIn bool

	mu      sync.RWMutex
	screens map[Kind]Screen
	current Kind

	redirects chan Route
}

// NewRouter returns a Router with no pages. signedIn decides whether
// protected pages are reachable.
func NewRouter(c *Console, signedIn bool) *Router {
	return &Router{
		console:   c,
		signedIn:  signedIn,
		screens:   make(map[Kind]Screen),
		redirects: make(chan Route, 1),
	}
}

// Handle registers s for k, replacing any earlier registration.
func (r *Router) Handle(k Kind, s Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens[k] = s
}

// Current returns the page being shown.
func (r *Router) Current() Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Home is where [KindBack] leads.
func (r *Router) Home() Kind {
	if r.signedIn {
		return KindDashboard
	}
	return KindHome
}

// ToDashboard implements session.Navigator.
func (r *Router) ToDashboard() { r.push(Route{Kind: KindDashboard}) }

// ToResults implements session.Navigator.
func (r *Router) ToResults(res session.ResultsRoute) {
	r.push(Route{Kind: KindResults, Results: res})
}

// Redirects delivers queued navigation.
func (r *Router) Redirects() <-chan Route { return r.redirects }

func (r *Router) push(next Route) {
	for {
		select {
		case r.redirects <- next:
			return
		default:
		}
		// Drop the stale request and retry.
		select {
		case <-r.redirects:
		default:
		}
	}
}

func (r *Router) drain() {
	for {
		select {
		case <-r.redirects:
		default:
			return
		}
	}
}

// Run shows pages starting at start until a page returns [KindExit], input
// ends or ctx is cancelled. Those three endings return nil.
func (r *Router) Run(ctx context.Context, start Route) error {
	route := start
	for {
		if ctx.Err() != nil {
			return nil
		}
		if route.Kind == KindBack {
			route = Route{Kind: r.Home()}
		}
		if route.Kind == KindExit {
			return nil
		}
		if protected[route.Kind] && !r.signedIn {
			r.console.Println(identity.SignInNotice)
			route = Route{Kind: KindHome}
		}

		r.mu.Lock()
		s, ok := r.screens[route.Kind]
		if ok {
			r.current = route.Kind
		}
		r.mu.Unlock()
		if !ok {
			slog.Debug("no page registered", "kind", route.Kind)
			r.notFound()
			route = Route{Kind: r.Home()}
			if _, ok := r.screen(route.Kind); !ok {
				return fmt.Errorf("screen: no %s page registered", route.Kind)
			}
			continue
		}

		r.drain()
		next, err := s.Show(ctx, route)
		switch {
		case err == nil:
			route = next
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			return nil
		default:
			return fmt.Errorf("screen: %s: %w", route.Kind, err)
		}
	}
}

func (r *Router) screen(k Kind) (Screen, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.screens[k]
	return s, ok
}

func (r *Router) notFound() {
	r.console.Heading("404")
	r.console.Println("Oops! Page Not Found")
	r.console.Println("The page you're looking for doesn't exist or has been moved.")
}

var _ Navigator = (*Router)(nil)
