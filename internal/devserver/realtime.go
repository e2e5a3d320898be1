package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	readWait   = 60 * time.Second
)

// conn wraps a websocket and serializes outbound writes through a buffered channel.
type conn struct {
	id     string
	userID string

	ws    *websocket.Conn
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

func newConn(userID string, ws *websocket.Conn) *conn {
	return &conn{
		id:     uuid.NewString(),
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, 128),
		close:  make(chan struct{}),
	}
}

// enqueue queues payload. A slow client whose buffer fills up is disconnected.
func (c *conn) enqueue(payload []byte) error {
	select {
	case <-c.close:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.shutdown(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

func (c *conn) shutdown(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

// router tracks connections and the conversation rooms they joined. A user
// may hold several connections, one per open chat view.
type router struct {
	mu       sync.RWMutex
	conns    map[string]*conn
	rooms    map[string]map[string]*conn // room -> conn id -> conn
	memberOf map[string]map[string]struct{}
}

func newRouter() *router {
	return &router{
		conns:    make(map[string]*conn),
		rooms:    make(map[string]map[string]*conn),
		memberOf: make(map[string]map[string]struct{}),
	}
}

func (r *router) attach(c *conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.memberOf[c.id] = make(map[string]struct{})
	r.mu.Unlock()
	go c.writeLoop()
}

func (r *router) detach(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.memberOf[c.id] {
		members := r.rooms[room]
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	delete(r.memberOf, c.id)
	delete(r.conns, c.id)
}

func (r *router) join(room string, c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.id]; !ok {
		return
	}
	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*conn)
		r.rooms[room] = members
	}
	members[c.id] = c
	r.memberOf[c.id][room] = struct{}{}
}

// broadcast writes payload to every member of room except excludeUserID's connections.
func (r *router) broadcast(room string, payload []byte, excludeUserID string) int {
	r.mu.RLock()
	targets := make([]*conn, 0, len(r.rooms[room]))
	for _, c := range r.rooms[room] {
		if excludeUserID != "" && c.userID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(payload) == nil {
			delivered++
		}
	}
	return delivered
}

func (r *router) roomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

func (r *router) closeAll() {
	r.mu.Lock()
	conns := make([]*conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.conns = make(map[string]*conn)
	r.rooms = make(map[string]map[string]*conn)
	r.memberOf = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, c := range conns {
		c.shutdown(websocket.CloseGoingAway, "server shutdown")
	}
}

// pairRoom is the room shared by both sides of a conversation.
func pairRoom(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}
