package keys

import "github.com/gdamore/tcell/v2"

// Scopes key bindings are registered under.
const (
	ScopeDirectory = "directory"
	ScopeChat      = "chat"
	ScopeSignIn    = "signin"
)

// Action is one key binding.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Handler func()
}

// Matches reports whether ev triggers the action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds global bindings and bindings scoped to one kind of page.
type Registry struct {
	global []*Action
	scoped map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scoped: make(map[string][]*Action)}
}

// Rune is shorthand for an Action on a printable key.
func Rune(r rune, fn func()) *Action {
	return &Action{Key: tcell.KeyRune, Rune: r, Handler: fn}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// Add registers a binding for scope.
func (r *Registry) Add(scope string, a *Action) {
	r.scoped[scope] = append(r.scoped[scope], a)
}

// HandleEvent runs the first binding matching ev, scoped bindings first.
// It reports whether one ran.
func (r *Registry) HandleEvent(scope string, ev *tcell.EventKey) bool {
	for _, a := range r.scoped[scope] {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	for _, a := range r.global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
