package views

import (
	"fmt"

	"github.com/matheus3301/vitalchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// SignIn is shown while the daemon has no usable token.
type SignIn struct {
	*tview.TextView
	theme *ui.Theme
}

// NewSignIn creates the sign-in page.
func NewSignIn(theme *ui.Theme) *SignIn {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Sign in required ")
	tv.SetTitleColor(theme.TitleColor)
	si := &SignIn{TextView: tv, theme: theme}
	si.ShowMessage("")
	return si
}

// Name implements ui.Component.
func (si *SignIn) Name() string { return "Sign in" }

// Start implements ui.Component.
func (si *SignIn) Start() {}

// Stop implements ui.Component.
func (si *SignIn) Stop() {}

// Hints implements ui.Component.
func (si *SignIn) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Paste token"},
		{Key: "q", Description: "Quit"},
	}
}

// ShowMessage renders the instructions with an optional status line, e.g.
// why the last token was refused.
func (si *SignIn) ShowMessage(msg string) {
	si.Clear()
	key := ui.Tag(si.theme.MenuKeyColor)
	_, _ = fmt.Fprintf(si,
		"\n\nThis session is not signed in to the portal.\n\n"+
			"Press [%s::b]Enter[-:-:-] and paste your portal bearer token,\n"+
			"or run [%s]vcctl login --token <token>[-] in another terminal.\n",
		key, key)
	if msg != "" {
		_, _ = fmt.Fprintf(si, "\n[%s]%s[-]\n", ui.Tag(si.theme.FlashWarnColor), tview.Escape(msg))
	}
}
