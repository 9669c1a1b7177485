package ahrsweb

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "ahrsweb")

type message struct {
	from *client
	data []byte
}

// Room relays every message a client writes to all other clients.
type Room struct {
	// forward holds incoming messages to pass on to the other clients.
	forward chan *message
	// join is a channel for clients wishing to join the room.
	join chan *client
	// leave is a channel for clients wishing to leave the room.
	leave chan *client
	// clients holds all current clients in this room.
	clients map[*client]bool
	// done is closed when Run returns.
	done chan struct{}

	n    int32
	mu   sync.RWMutex
	last []byte
}

// NewRoom makes a new room that is ready to go.
func NewRoom() *Room {
	return &Room{
		forward: make(chan *message),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		done:    make(chan struct{}),
	}
}

// Run relays messages until ctx is cancelled, then disconnects every client.
func (r *Room) Run(ctx context.Context) {
	defer func() {
		for c := range r.clients {
			delete(r.clients, c)
			close(c.send)
		}
		atomic.StoreInt32(&r.n, 0)
		close(r.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-r.join:
			r.clients[c] = true
			atomic.StoreInt32(&r.n, int32(len(r.clients)))
			log.Debug("New client joined")
		case c := <-r.leave:
			if r.clients[c] {
				delete(r.clients, c)
				close(c.send)
			}
			atomic.StoreInt32(&r.n, int32(len(r.clients)))
			log.Debug("Client left")
		case msg := <-r.forward:
			r.mu.Lock()
			r.last = msg.data
			r.mu.Unlock()
			for c := range r.clients {
				if c == msg.from {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					log.Debug("Couldn't send to client, dropping message")
				}
			}
		}
	}
}

// Publish forwards msg to every client, as if a client had sent it.
// It returns false once the room has stopped.
func (r *Room) Publish(msg []byte) bool {
	return r.publish(&message{data: msg})
}

func (r *Room) publish(msg *message) bool {
	select {
	case r.forward <- msg:
		return true
	case <-r.done:
		return false
	}
}

// Clients returns the number of connected clients.
func (r *Room) Clients() int {
	return int(atomic.LoadInt32(&r.n))
}

// Latest returns the last message relayed, or nil.
func (r *Room) Latest() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// LatestHandler serves the last relayed message as JSON, or 204 before the first.
func (r *Room) LatestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		msg := r.Latest()
		if msg == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(msg)
	})
}

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.WithError(err).Warn("ServeHTTP: upgrade failed")
		return
	}
	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		room:   r,
	}
	select {
	case r.join <- c:
	case <-r.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- c:
		case <-r.done:
		}
	}()
	go c.write()
	c.read()
}
