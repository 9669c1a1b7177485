package ahrsweb

import "github.com/gorilla/websocket"

// client is a single websocket connection to a Room.
type client struct {
	socket *websocket.Conn
	// send is a channel on which messages are sent.
	send chan []byte
	room *Room
}

func (c *client) read() {
	defer c.socket.Close()
	for {
		_, msg, err := c.socket.ReadMessage()
		if err != nil {
			return
		}
		if !c.room.publish(&message{from: c, data: msg}) {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
