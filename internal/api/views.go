package api

import (
	"sync"

	"github.com/matheus3301/vitalchat/internal/chat"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Views tracks the chat views mounted by OpenConversation streams.
type Views struct {
	mu    sync.Mutex
	views map[string]*chat.View
}

// NewViews creates an empty registry.
func NewViews() *Views {
	return &Views{views: make(map[string]*chat.View)}
}

func (r *Views) add(v *chat.View) {
	r.mu.Lock()
	r.views[v.ID()] = v
	r.mu.Unlock()
}

func (r *Views) remove(id string) {
	r.mu.Lock()
	delete(r.views, id)
	r.mu.Unlock()
}

func (r *Views) get(id string) (*chat.View, error) {
	r.mu.Lock()
	v, ok := r.views[id]
	r.mu.Unlock()
	if !ok {
		return nil, grpcstatus.Errorf(codes.NotFound, "view %q not found", id)
	}
	return v, nil
}

// Len returns the number of mounted views.
func (r *Views) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// CloseAll closes every mounted view and returns how many there were.
func (r *Views) CloseAll() int {
	r.mu.Lock()
	views := make([]*chat.View, 0, len(r.views))
	for _, v := range r.views {
		views = append(views, v)
	}
	r.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
	return len(views)
}
