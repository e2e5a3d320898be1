package ui

import (
	"strconv"

	"github.com/rivo/tview"
)

// Page is a Component that can be shown in Pages.
type Page interface {
	Component
	tview.Primitive
}

// Pages is a stack of components over tview.Pages. The top of the stack is
// the only visible page. Pushing starts a component; popping stops it.
type Pages struct {
	*tview.Pages
	stack    []entry
	seq      int
	onChange func(top Page, stack []string)
}

// Names can change while a page is up, so tview keys are assigned on push.
type entry struct {
	key  string
	page Page
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange sets a callback fired after every stack change.
func (p *Pages) SetOnChange(fn func(top Page, stack []string)) {
	p.onChange = fn
}

// Push shows c on top of the stack.
func (p *Pages) Push(c Page) {
	p.seq++
	e := entry{key: "page-" + strconv.Itoa(p.seq), page: c}
	p.stack = append(p.stack, e)
	p.AddAndSwitchToPage(e.key, c, true)
	c.Start()
	p.notify()
}

// Pop stops and removes the top page, showing the one below. The last page
// is never popped.
func (p *Pages) Pop() Page {
	if len(p.stack) < 2 {
		return nil
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	top.page.Stop()
	p.RemovePage(top.key)
	p.SwitchToPage(p.stack[len(p.stack)-1].key)
	p.notify()
	return top.page
}

// Top returns the visible page, or nil.
func (p *Pages) Top() Page {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1].page
}

// Depth returns the stack depth.
func (p *Pages) Depth() int { return len(p.stack) }

// Reset stops everything above the root and shows it.
func (p *Pages) Reset() {
	for len(p.stack) > 1 {
		p.Pop()
	}
}

// Names returns the page names bottom to top.
func (p *Pages) Names() []string {
	names := make([]string, len(p.stack))
	for i, e := range p.stack {
		names[i] = e.page.Name()
	}
	return names
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Top(), p.Names())
	}
}
