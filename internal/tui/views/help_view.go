package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/vitalchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView lists key bindings and commands.
type HelpView struct {
	*tview.TextView
}

type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"/", "Filter conversations"},
		{"?", "This help"},
		{"Esc", "Back"},
		{"q", "Quit (from the directory)"},
		{"Ctrl-C", "Quit"},
	}},
	{"Conversations", [][2]string{
		{"Enter", "Open conversation"},
		{"1-9", "Open the Nth row"},
		{"0", "Clear filter"},
		{"r", "Refresh now"},
	}},
	{"Chat", [][2]string{
		{"i", "Focus composer"},
		{"Enter", "Send (in composer)"},
		{"Esc", "Leave composer"},
		{"r", "Retry a failed load"},
		{"d", "Conversation details"},
	}},
	{"Commands", [][2]string{
		{":open <partner-id>", "Open a conversation by id"},
		{":chat <name>", "Open the first partner matching name"},
		{":login", "Sign in with a bearer token"},
		{":logout", "Forget the stored token"},
		{":reload", "Retry the open conversation"},
		{":refresh", "Refresh the directory"},
		{":help", "This help"},
		{":quit", "Quit"},
	}},
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	key := ui.Tag(theme.MenuKeyColor)
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, k := range s.keys {
			fmt.Fprintf(&b, "  [%s]%-20s[-] %s\n", key, tview.Escape(k[0]), k[1])
		}
	}
	_, _ = fmt.Fprint(tv, b.String())
	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Start implements ui.Component.
func (hv *HelpView) Start() {}

// Stop implements ui.Component.
func (hv *HelpView) Stop() {}

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}
