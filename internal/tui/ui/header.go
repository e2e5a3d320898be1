package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

func newHeaderText(theme *Theme) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return tv
}

// Logo is the wordmark in the top-right corner.
type Logo struct {
	*tview.TextView
}

// NewLogo creates the logo panel.
func NewLogo(theme *Theme) *Logo {
	tv := newHeaderText(theme)
	tv.SetBorderPadding(1, 0, 1, 0)
	title, fg := Tag(theme.TitleColor), Tag(theme.FgColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b]╻ ╻╻╺┳╸┏━┓╻  [-:-:-]\n"+
			"[%s::b]┃┏┛┃ ┃ ┣━┫┃  [-:-:-]\n"+
			"[%s::b]┗┛ ╹ ╹ ╹ ╹┗━╸[-:-:-]\n"+
			"[%s]chat[-:-:-]",
		title, title, title, fg,
	)
	return &Logo{TextView: tv}
}

// Menu lists the active component's key hints, one per line.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates the key hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := newHeaderText(theme)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders hints.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	key := Tag(m.theme.MenuKeyColor)
	for _, h := range hints {
		_, _ = fmt.Fprintf(m, "[%s::b]<%s>[-:-:-] %s\n", key, h.Key, h.Description)
	}
}

// Crumbs shows the page stack as a breadcrumb trail.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates the breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	return &Crumbs{TextView: newHeaderText(theme), theme: theme}
}

// Update renders the trail; the last entry is highlighted.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	parts := make([]string, 0, len(stack))
	for i, name := range stack {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", Tag(fg), Tag(bg), attr, tview.Escape(name)))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}

// SessionData is what the header shows about the daemon session.
type SessionData struct {
	Session     string
	UserID      string
	Status      string
	UnreadTotal int
	OpenViews   int
	LastPoll    time.Time
	Uptime      time.Duration
}

// SessionInfo renders SessionData in the top-left corner.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates the session panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := newHeaderText(theme)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &SessionInfo{TextView: tv, theme: theme}
}

// Update renders data; nil clears the panel.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}
	fg, val := Tag(si.theme.FgColor), Tag(si.theme.CounterColor)
	unread := val
	if data.UnreadTotal > 0 {
		unread = Tag(si.theme.UnreadColor)
	}
	rows := []struct{ label, color, value string }{
		{"Session:", val, data.Session},
		{"User:", val, orDash(data.UserID)},
		{"Status:", val, data.Status},
		{"Unread:", unread, fmt.Sprint(data.UnreadTotal)},
		{"Views:", val, fmt.Sprint(data.OpenViews)},
		{"Polled:", val, sinceLabel(data.LastPoll)},
		{"Uptime:", val, formatDuration(data.Uptime)},
	}
	for i, r := range rows {
		if i > 0 {
			_, _ = fmt.Fprint(si, "\n")
		}
		_, _ = fmt.Fprintf(si, "[%s::b]%-8s[-:-:-] [%s]%s[-]", fg, r.label, r.color, tview.Escape(r.value))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sinceLabel(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return formatDuration(time.Since(t)) + " ago"
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
