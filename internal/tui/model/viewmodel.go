package model

import (
	"context"
	"sync"

	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/tui/client"
	"github.com/matheus3301/vitalchat/internal/wire"
)

// ViewModel caches daemon state for the UI and signals refreshes.
type ViewModel struct {
	mu sync.RWMutex

	client        *client.Client
	status        *wire.GetSessionStatusResponse
	conversations []chat.Conversation
	unreadTotal   int
	userID        string

	refreshCh chan struct{}
}

// NewViewModel creates a view model connected to the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client:    c,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals a UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadSessionStatus fetches the daemon's session status.
func (vm *ViewModel) LoadSessionStatus(ctx context.Context) error {
	resp, err := vm.client.Session.GetSessionStatus(ctx, &wire.GetSessionStatusRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	if resp.UserID != "" {
		vm.userID = resp.UserID
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadConversations fetches the full directory. Filtering happens locally so
// the unread total always covers every conversation.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	resp, err := vm.client.Chat.ListConversations(ctx, &wire.ListConversationsRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations = resp.Conversations
	vm.unreadTotal = resp.UnreadTotal
	if resp.UserID != "" {
		vm.userID = resp.UserID
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// SetCredentials hands a bearer token to the daemon.
func (vm *ViewModel) SetCredentials(ctx context.Context, token, userID string) error {
	resp, err := vm.client.Session.SetCredentials(ctx, &wire.SetCredentialsRequest{Token: token, UserID: userID})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.userID = resp.UserID
	vm.mu.Unlock()
	return vm.LoadSessionStatus(ctx)
}

// Logout clears the daemon's credentials and the cached directory.
func (vm *ViewModel) Logout(ctx context.Context) error {
	if _, err := vm.client.Session.ClearCredentials(ctx, &wire.ClearCredentialsRequest{}); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations = nil
	vm.unreadTotal = 0
	vm.userID = ""
	vm.mu.Unlock()
	return vm.LoadSessionStatus(ctx)
}

// Open mounts a conversation on the daemon. onChange runs on the stream
// goroutine after every applied event.
func (vm *ViewModel) Open(ctx context.Context, partnerID string, onChange func()) (*Conversation, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := vm.client.Chat.OpenConversation(ctx, &wire.OpenConversationRequest{PartnerID: partnerID})
	if err != nil {
		cancel()
		return nil, err
	}
	c := NewConversation(partnerID, vm.client.Chat)
	c.cancel = cancel
	c.onChange = onChange
	go c.pump(stream)
	return c, nil
}

// Conversations returns the cached directory.
func (vm *ViewModel) Conversations() []chat.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversations
}

// Conversation looks up a cached directory entry by partner id.
func (vm *ViewModel) Conversation(partnerID string) (chat.Conversation, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.conversations {
		if c.Partner.ID == partnerID {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

// UnreadTotal returns the unread count summed over the whole directory.
func (vm *ViewModel) UnreadTotal() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.unreadTotal
}

// UserID returns the signed-in user, if known.
func (vm *ViewModel) UserID() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.userID
}

// Status returns the last fetched session status, or nil.
func (vm *ViewModel) Status() *wire.GetSessionStatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}
