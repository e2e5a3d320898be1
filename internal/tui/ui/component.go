package ui

// MenuHint describes a keyboard shortcut shown in the header menu.
type MenuHint struct {
	Key         string
	Description string
}

// Component is the lifecycle every page in the TUI implements. Start runs
// when the page becomes visible and Stop when it leaves the stack.
type Component interface {
	Name() string
	Start()
	Stop()
	Hints() []MenuHint
}
