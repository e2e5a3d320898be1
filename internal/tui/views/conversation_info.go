package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/tui/model"
	"github.com/matheus3301/vitalchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo shows who the partner is and how the conversation stands.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates the details page.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)
	return &ConversationInfo{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Start implements ui.Component.
func (ci *ConversationInfo) Start() {}

// Stop implements ui.Component.
func (ci *ConversationInfo) Stop() {}

// Hints implements ui.Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

// Update renders the details of a mounted conversation. summary is the
// directory entry for the partner, when there is one.
func (ci *ConversationInfo) Update(st model.ConversationState, summary *chat.Conversation) {
	ci.Clear()
	fg, val := ui.Tag(ci.theme.FgColor), ui.Tag(ci.theme.CounterColor)

	avatar := st.Partner.AvatarURL
	if avatar == "" {
		avatar = "-"
	}
	first, last := "-", "-"
	if n := len(st.Messages); n > 0 {
		first = st.Messages[0].SentAt.Local().Format(time.DateTime)
		last = st.Messages[n-1].SentAt.Local().Format(time.DateTime)
	}
	unread := "-"
	if summary != nil {
		unread = fmt.Sprint(summary.UnreadCount)
	}
	channel := st.ChannelState
	if channel == "" {
		channel = "-"
	}

	rows := [][2]string{
		{"Name", st.Name},
		{"Partner ID", st.PartnerID},
		{"Avatar", avatar},
		{"View", st.ViewID},
		{"State", string(st.State)},
		{"Live channel", channel},
		{"Messages", fmt.Sprint(len(st.Messages))},
		{"First", first},
		{"Latest", last},
		{"Unread", unread},
	}
	_, _ = fmt.Fprint(ci, "\n")
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, r[0]+":", val, safe(r[1]))
	}
	ci.SetTitle(fmt.Sprintf(" %s ", safe(st.Name)))
}
