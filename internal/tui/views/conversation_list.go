package views

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the directory page: one row per partner, narrowed by
// the name filter.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	all     []chat.Conversation
	visible []chat.Conversation
	userID  string
	filter  string
	now     func() time.Time
}

// NewConversationList creates an empty directory table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{Table: table, theme: theme, now: time.Now}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Start implements ui.Component.
func (cl *ConversationList) Start() {}

// Stop implements ui.Component.
func (cl *ConversationList) Stop() {}

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "1-9", Description: "Jump"},
		{Key: "r", Description: "Refresh"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// Update replaces the directory. The selection stays on the same partner when
// it is still visible.
func (cl *ConversationList) Update(convs []chat.Conversation, userID string) {
	selected := cl.Selected()
	cl.all = convs
	cl.userID = userID
	cl.render()
	cl.selectPartner(selected)
}

// SetFilter narrows the rows to partners whose name contains filter.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

// Visible returns the rows currently shown.
func (cl *ConversationList) Visible() []chat.Conversation { return cl.visible }

// Selected returns the partner id under the cursor, or "".
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the partner id of the nth visible row (1-based).
func (cl *ConversationList) ByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].Partner.ID
}

func (cl *ConversationList) selectPartner(id string) {
	for i, c := range cl.visible {
		if c.Partner.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
}

func (cl *ConversationList) render() {
	cl.Clear()
	cl.visible = chat.FilterConversations(cl.all, cl.filter)

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" PARTNER", 1},
		{" LAST MESSAGE", 3},
		{" UNREAD", 0},
		{" WHEN ", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := cl.now()
	for i, c := range cl.visible {
		row := i + 1
		fg := cl.theme.FgColor
		unread := ""
		if c.UnreadCount > 0 {
			fg = cl.theme.UnreadColor
			unread = strconv.Itoa(c.UnreadCount)
		}
		when := ""
		if c.LastMessage != nil && !c.LastMessage.SentAt.IsZero() {
			when = shortWhen(c.LastMessage.SentAt, now)
		}
		cells := []*tview.TableCell{
			tview.NewTableCell(" " + strconv.Itoa(row)).SetTextColor(cl.theme.DividerColor),
			tview.NewTableCell(" " + safe(c.Partner.DisplayName())).SetExpansion(1),
			tview.NewTableCell(" " + safe(oneLine(chat.Preview(c, cl.userID)))).SetExpansion(3),
			tview.NewTableCell(unread).SetAlign(tview.AlignRight),
			tview.NewTableCell(" " + when + " ").SetAlign(tview.AlignRight),
		}
		for col, cell := range cells {
			if col > 0 {
				cell.SetTextColor(fg)
			}
			cl.SetCell(row, col, cell)
		}
	}

	switch {
	case cl.filter != "":
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) /%s ", len(cl.visible), len(cl.all), tview.Escape(cl.filter)))
	default:
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.all)))
	}
	if len(cl.visible) > 0 {
		if row, _ := cl.GetSelection(); row < 1 || row > len(cl.visible) {
			cl.Select(1, 0)
		}
	}
}

// shortWhen is the clock time for today's messages and the day label otherwise.
func shortWhen(t, now time.Time) string {
	day := chat.DayLabel(t, now, time.Local)
	if day == "Today" {
		return chat.ClockLabel(t, time.Local)
	}
	return day
}
