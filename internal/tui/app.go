package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/status"
	"github.com/matheus3301/vitalchat/internal/tui/client"
	"github.com/matheus3301/vitalchat/internal/tui/keys"
	"github.com/matheus3301/vitalchat/internal/tui/model"
	"github.com/matheus3301/vitalchat/internal/tui/ui"
	"github.com/matheus3301/vitalchat/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	refreshInterval = 15 * time.Second
	sendTimeout     = 35 * time.Second
	rpcTimeout      = 10 * time.Second
	promptHeight    = 3
)

// App is the TUI shell: a header, the page stack, and the prompt, crumb and
// flash bars.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	root     *tview.Flex
	pages    *ui.Pages
	prompt   *ui.Prompt
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	crumbs   *ui.Crumbs
	menu     *ui.Menu
	info     *ui.SessionInfo
	registry *keys.Registry

	vm      *model.ViewModel
	session string
	loc     *time.Location

	list   *views.ConversationList
	signIn *views.SignIn

	// The mounted conversation, if any. Only touched on the UI goroutine.
	conv   *model.Conversation
	thread *views.MessageThread

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI for a session daemon reachable through c. Message
// times are shown in loc.
func NewApp(c *client.Client, sessionName string, loc *time.Location) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		prompt:   ui.NewPrompt(theme),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),
		crumbs:   ui.NewCrumbs(theme),
		menu:     ui.NewMenu(theme),
		info:     ui.NewSessionInfo(theme),
		registry: keys.NewRegistry(),
		vm:       model.NewViewModel(c),
		session:  sessionName,
		loc:      loc,
		list:     views.NewConversationList(theme),
		signIn:   views.NewSignIn(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.setupLayout()
	a.setupBindings()
	a.setupCallbacks()
	a.pages.Push(a.list)
	return a
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.info, 34, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 8, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.keyboard)
}

func (a *App) setupBindings() {
	a.registry.Add(keys.ScopeDirectory, keys.Rune('q', a.Stop))
	a.registry.Add(keys.ScopeDirectory, keys.Rune('r', func() { go a.refresh() }))
	a.registry.Add(keys.ScopeDirectory, keys.Rune('0', func() { a.list.SetFilter("") }))
	for n := 1; n <= 9; n++ {
		a.registry.Add(keys.ScopeDirectory, keys.Rune(rune('0'+n), func() {
			a.openConversation(a.list.ByIndex(n))
		}))
	}

	a.registry.Add(keys.ScopeChat, keys.Rune('i', func() {
		if a.thread != nil {
			a.app.SetFocus(a.thread.Input())
		}
	}))
	a.registry.Add(keys.ScopeChat, keys.Rune('r', a.reloadConversation))
	a.registry.Add(keys.ScopeChat, keys.Rune('d', a.showDetails))

	a.registry.Add(keys.ScopeSignIn, &keys.Action{Key: tcell.KeyEnter, Handler: func() {
		a.showPrompt(ui.PromptToken, "")
	}})
	a.registry.Add(keys.ScopeSignIn, keys.Rune('q', a.Stop))

	a.registry.AddGlobal(keys.Rune(':', func() { a.showPrompt(ui.PromptCommand, "") }))
	a.registry.AddGlobal(keys.Rune('?', func() { a.pages.Push(views.NewHelpView(a.theme)) }))
	a.registry.AddGlobal(&keys.Action{Key: tcell.KeyEscape, Handler: func() { a.pages.Pop() }})
}

func (a *App) setupCallbacks() {
	a.list.SetSelectedFunc(func(row, _ int) {
		a.openConversation(a.list.ByIndex(row))
	})

	a.pages.SetOnChange(func(top ui.Page, stack []string) {
		a.crumbs.Update(stack)
		if top != nil {
			a.menu.Update(top.Hints())
			a.app.SetFocus(top)
		}
	})

	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptFilter {
			a.list.SetFilter(text)
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.list.SetFilter("")
		}
		a.hidePrompt()
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(text)
		case ui.PromptToken:
			go a.signInWith(text)
		}
	})
}

func (a *App) scope() string {
	switch a.pages.Top().(type) {
	case *views.ConversationList:
		return keys.ScopeDirectory
	case *views.MessageThread:
		return keys.ScopeChat
	case *views.SignIn:
		return keys.ScopeSignIn
	}
	return ""
}

func (a *App) keyboard(ev *tcell.EventKey) *tcell.EventKey {
	if a.typing() {
		if a.thread != nil && a.app.GetFocus() == a.thread.Input() && ev.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.thread.Transcript())
			return nil
		}
		return ev
	}
	if ev.Key() == tcell.KeyRune && ev.Rune() == '/' {
		if a.scope() == keys.ScopeDirectory {
			a.showPrompt(ui.PromptFilter, a.list.Filter())
		}
		return nil
	}
	if a.registry.HandleEvent(a.scope(), ev) {
		return nil
	}
	return ev
}

// typing reports whether keystrokes belong to a text field.
func (a *App) typing() bool {
	switch a.app.GetFocus().(type) {
	case *tview.InputField, *ui.Prompt:
		return true
	}
	return false
}

func (a *App) showPrompt(mode ui.PromptMode, initial string) {
	a.prompt.Activate(mode, initial)
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if top := a.pages.Top(); top != nil {
		a.app.SetFocus(top)
	}
}

func (a *App) runCommand(line string) {
	cmd, err := ParseCommand(line)
	if err != nil {
		a.flash.Err(err)
		return
	}
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.pages.Push(views.NewHelpView(a.theme))
	case "open":
		a.openConversation(cmd.Args)
	case "chat":
		matches := chat.FilterConversations(a.vm.Conversations(), cmd.Args)
		if len(matches) == 0 {
			a.flash.Warn(fmt.Sprintf("No conversation matches %q", cmd.Args))
			return
		}
		a.openConversation(matches[0].Partner.ID)
	case "login":
		a.showPrompt(ui.PromptToken, "")
	case "logout":
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, rpcTimeout)
			defer cancel()
			if err := a.vm.Logout(ctx); err != nil {
				a.flash.Err(err)
			}
			a.refresh()
		}()
	case "reload":
		a.reloadConversation()
	case "refresh":
		go a.refresh()
	}
}

func (a *App) signInWith(token string) {
	ctx, cancel := context.WithTimeout(a.ctx, rpcTimeout)
	defer cancel()
	if err := a.vm.SetCredentials(ctx, token, ""); err != nil {
		a.app.QueueUpdateDraw(func() { a.signIn.ShowMessage(ui.ErrText(err)) })
		return
	}
	a.flash.Info("Signed in as " + a.vm.UserID())
	a.refresh()
}

func (a *App) openConversation(partnerID string) {
	if partnerID == "" {
		return
	}
	if st := a.vm.Status(); st != nil && st.Status != string(status.Ready) {
		a.flash.Warn("Not signed in")
		return
	}
	go func() {
		conv, err := a.vm.Open(a.ctx, partnerID, func() {
			a.app.QueueUpdateDraw(a.renderConversation)
		})
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(func() { a.mount(conv) })
	}()
}

func (a *App) mount(conv *model.Conversation) {
	thread := views.NewMessageThread(a.theme, conv.Composer(), a.loc)
	thread.SetOnSubmit(func() { go a.submit(conv, thread) })
	thread.SetOnStop(func() {
		conv.Close()
		if a.conv == conv {
			a.conv, a.thread = nil, nil
		}
	})
	// One conversation is mounted at a time.
	if a.thread != nil {
		a.pages.Reset()
	}
	a.conv, a.thread = conv, thread
	a.pages.Push(thread)
	a.renderConversation()
}

func (a *App) submit(conv *model.Conversation, thread *views.MessageThread) {
	ctx, cancel := context.WithTimeout(a.ctx, sendTimeout)
	defer cancel()
	_, err := conv.Composer().Submit(ctx)
	a.app.QueueUpdateDraw(func() {
		if err != nil {
			a.flash.Err(err)
		}
		thread.SyncDraft()
	})
}

// renderConversation redraws the mounted conversation. Runs on the UI goroutine.
func (a *App) renderConversation() {
	if a.conv == nil || a.thread == nil {
		return
	}
	st := a.conv.State()
	a.thread.Update(st)
	if a.pages.Top() == a.thread {
		a.crumbs.Update(a.pages.Names())
		a.menu.Update(a.thread.Hints())
	}
	if st.State == chat.ViewClosed {
		a.flash.Warn("Conversation closed by the daemon")
		for a.pages.Depth() > 1 && a.thread != nil {
			a.pages.Pop()
		}
	}
}

func (a *App) reloadConversation() {
	conv := a.conv
	if conv == nil {
		return
	}
	if st := conv.State(); st.State != chat.ViewFailed || !st.Retryable {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, rpcTimeout*3)
		defer cancel()
		if err := conv.Reload(ctx); err != nil {
			a.flash.Err(err)
		}
	}()
}

func (a *App) showDetails() {
	if a.conv == nil {
		return
	}
	st := a.conv.State()
	info := views.NewConversationInfo(a.theme)
	var summary *chat.Conversation
	if c, ok := a.vm.Conversation(st.PartnerID); ok {
		summary = &c
	}
	info.Update(st, summary)
	a.pages.Push(info)
}

// refresh reloads status and, when signed in, the directory. Safe to call
// from any goroutine except the UI one.
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(a.ctx, rpcTimeout)
	defer cancel()
	if err := a.vm.LoadSessionStatus(ctx); err != nil {
		a.flash.Err(fmt.Errorf("daemon: %w", err))
		return
	}
	if st := a.vm.Status(); st != nil && st.Status == string(status.Ready) {
		if err := a.vm.LoadConversations(ctx); err != nil {
			a.flash.Err(err)
		}
	}
	a.app.QueueUpdateDraw(a.applyRefresh)
}

func (a *App) applyRefresh() {
	st := a.vm.Status()
	if st == nil {
		return
	}
	unread := st.UnreadTotal
	if a.vm.Conversations() != nil {
		unread = a.vm.UnreadTotal()
	}
	a.info.Update(&ui.SessionData{
		Session:     a.session,
		UserID:      st.UserID,
		Status:      st.Status,
		UnreadTotal: unread,
		OpenViews:   st.OpenViews,
		LastPoll:    st.LastPollAt,
		Uptime:      time.Duration(st.UptimeMs) * time.Millisecond,
	})
	a.list.Update(a.vm.Conversations(), a.vm.UserID())

	signedIn := st.Status == string(status.Ready)
	switch top := a.pages.Top(); {
	case !signedIn && top != a.signIn:
		a.pages.Reset()
		a.pages.Push(a.signIn)
	case signedIn && top == a.signIn:
		a.pages.Pop()
	}
}

func (a *App) loop() {
	tick := time.NewTicker(refreshInterval)
	clock := time.NewTicker(time.Second)
	defer tick.Stop()
	defer clock.Stop()
	for {
		select {
		case <-tick.C:
			a.refresh()
		case <-clock.C:
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		case msg := <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(&msg) })
		case <-a.ctx.Done():
			return
		}
	}
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	go func() {
		a.refresh()
		a.loop()
	}()
	return a.app.Run()
}

// Stop unmounts any open conversation and shuts the TUI down.
func (a *App) Stop() {
	if a.conv != nil {
		a.conv.Close()
	}
	a.cancel()
	a.app.Stop()
}
