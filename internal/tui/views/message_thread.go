package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/tui/model"
	"github.com/matheus3301/vitalchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread is the chat page: the transcript with date dividers, a status
// line, and the composer.
type MessageThread struct {
	*tview.Flex
	theme      *ui.Theme
	transcript *tview.TextView
	status     *tview.TextView
	input      *tview.InputField

	composer *chat.Composer
	state    model.ConversationState
	loc      *time.Location
	now      func() time.Time

	onSubmit func()
	onStop   func()
}

// NewMessageThread creates a chat page bound to composer. Times are shown in loc.
func NewMessageThread(theme *ui.Theme, composer *chat.Composer, loc *time.Location) *MessageThread {
	transcript := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	transcript.SetBorder(true)
	transcript.SetBorderColor(theme.BorderColor)
	transcript.SetBackgroundColor(theme.BgColor)
	transcript.SetTextColor(theme.FgColor)
	transcript.SetTitleColor(theme.TitleColor)

	status := tview.NewTextView().SetDynamicColors(true)
	status.SetBackgroundColor(theme.BgColor)

	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetTitle(" Message (i) ")
	input.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(transcript, 0, 1, true).
		AddItem(status, 1, 0, false).
		AddItem(input, 3, 0, false)

	if loc == nil {
		loc = time.Local
	}
	mt := &MessageThread{
		Flex:       flex,
		theme:      theme,
		transcript: transcript,
		status:     status,
		input:      input,
		composer:   composer,
		loc:        loc,
		now:        time.Now,
		state:      model.ConversationState{Name: chat.PlaceholderName, State: chat.ViewLoading},
	}

	input.SetChangedFunc(func(text string) {
		composer.SetDraft(text)
	})
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && composer.CanSubmit() && mt.onSubmit != nil {
			mt.onSubmit()
		}
	})
	mt.render()
	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string { return mt.state.Name }

// Start implements ui.Component.
func (mt *MessageThread) Start() {}

// Stop implements ui.Component. It unmounts the conversation.
func (mt *MessageThread) Stop() {
	if mt.onStop != nil {
		mt.onStop()
	}
}

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	hints := []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
	}
	if mt.state.State == chat.ViewFailed && mt.state.Retryable {
		hints = append(hints, ui.MenuHint{Key: "r", Description: "Retry"})
	}
	return append(hints,
		ui.MenuHint{Key: "Esc", Description: "Back"},
		ui.MenuHint{Key: "?", Description: "Help"},
	)
}

// SetOnSubmit sets the callback for Enter on a sendable draft.
func (mt *MessageThread) SetOnSubmit(fn func()) { mt.onSubmit = fn }

// SetOnStop sets the callback run when the page leaves the stack.
func (mt *MessageThread) SetOnStop(fn func()) { mt.onStop = fn }

// Input returns the composer field for focus handling.
func (mt *MessageThread) Input() *tview.InputField { return mt.input }

// Transcript returns the transcript pane for focus handling.
func (mt *MessageThread) Transcript() *tview.TextView { return mt.transcript }

// State returns the last rendered state.
func (mt *MessageThread) State() model.ConversationState { return mt.state }

// Update renders st.
func (mt *MessageThread) Update(st model.ConversationState) {
	mt.state = st
	mt.render()
}

// SyncDraft makes the input show the composer's draft, which a confirmed
// send clears.
func (mt *MessageThread) SyncDraft() {
	if d := mt.composer.Draft(); mt.input.GetText() != d {
		mt.input.SetText(d)
	}
	mt.renderStatus()
}

func (mt *MessageThread) render() {
	mt.transcript.SetTitle(fmt.Sprintf(" %s ", safe(mt.state.Name)))
	mt.transcript.Clear()
	_, _ = fmt.Fprint(mt.transcript, renderTranscript(mt.state, mt.theme, mt.loc, mt.now()))
	mt.transcript.ScrollToEnd()
	mt.renderStatus()
}

func (mt *MessageThread) renderStatus() {
	mt.status.Clear()
	var parts []string
	if ch := mt.state.ChannelState; ch != "" {
		parts = append(parts, fmt.Sprintf("[%s]live: %s[-]", ui.Tag(mt.theme.DividerColor), strings.ToLower(ch)))
	}
	if err := mt.composer.Err(); err != nil {
		parts = append(parts, fmt.Sprintf("[%s]not sent: %s[-]", ui.Tag(mt.theme.FlashErrColor), tview.Escape(ui.ErrText(err))))
	}
	_, _ = fmt.Fprint(mt.status, " "+strings.Join(parts, "  "))
}

// renderTranscript lays out the conversation as tview-tagged text.
func renderTranscript(st model.ConversationState, theme *ui.Theme, loc *time.Location, now time.Time) string {
	errColor := ui.Tag(theme.FlashErrColor)
	dim := ui.Tag(theme.DividerColor)

	switch st.State {
	case chat.ViewFailed:
		if st.Retryable {
			return fmt.Sprintf("\n [%s]Could not load this conversation: %s[-]\n [%s]Press r to try again.[-]",
				errColor, tview.Escape(st.Err), dim)
		}
		return fmt.Sprintf("\n [%s]This conversation cannot be opened: %s[-]", errColor, tview.Escape(st.Err))
	case chat.ViewLoading:
		if len(st.Messages) == 0 {
			return fmt.Sprintf("\n [%s]Loading conversation...[-]", dim)
		}
	}
	if len(st.Messages) == 0 {
		return fmt.Sprintf("\n [%s]No messages yet. Say hello.[-]", dim)
	}

	var b strings.Builder
	for _, row := range chat.Group(st.Messages, loc, now) {
		if row.IsDivider() {
			fmt.Fprintf(&b, "\n[%s]──── %s ────[-]\n", dim, row.Divider)
			continue
		}
		m := row.Message
		who, color := st.Name, theme.PartnerColor
		if m.Sender.Name != "" {
			who = m.Sender.DisplayName()
		}
		if m.IsOwn(st.UserID) {
			who, color = "You", theme.OwnColor
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [%s]%s[-]\n%s\n\n",
			ui.Tag(color), safe(who),
			dim, chat.ClockLabel(m.SentAt, loc),
			safe(m.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}
