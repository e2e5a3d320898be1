package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what the prompt bar is collecting.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
	// PromptToken collects a bearer token with masked input.
	PromptToken
)

// Prompt is the command, filter and token input bar.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	onSubmit func(mode PromptMode, text string)
	onChange func(mode PromptMode, text string)
	onCancel func()
	// clearing suppresses onChange while the field is reset after submit.
	clearing bool
}

// NewPrompt creates a hidden prompt bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{InputField: input}
	input.SetChangedFunc(func(text string) {
		if p.onChange != nil && !p.clearing {
			p.onChange(p.mode, text)
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := p.GetText()
			p.clear()
			if p.onSubmit != nil {
				p.onSubmit(p.mode, text)
			}
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	return p
}

func (p *Prompt) clear() {
	p.clearing = true
	p.SetText("")
	p.clearing = false
}

// SetOnSubmit sets the callback for Enter.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) { p.onSubmit = fn }

// SetOnChange sets the callback for every edit; the filter uses it to narrow live.
func (p *Prompt) SetOnChange(fn func(mode PromptMode, text string)) { p.onChange = fn }

// SetOnCancel sets the callback for Esc.
func (p *Prompt) SetOnCancel(fn func()) { p.onCancel = fn }

// Activate readies the prompt for mode. initial seeds the field, e.g. the
// current filter.
func (p *Prompt) Activate(mode PromptMode, initial string) {
	p.mode = mode
	p.SetMaskCharacter(0)
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
	case PromptToken:
		p.SetLabel("token: ")
		p.SetTitle(" Sign in ")
		p.SetMaskCharacter('*')
	}
	p.SetText(initial)
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode { return p.mode }
