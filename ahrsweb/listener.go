package ahrsweb

import (
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

// Listener publishes filter output to a Room over a websocket.
type Listener struct {
	u    url.URL
	data *AHRSData
	c    *websocket.Conn
}

// NewListener connects to the room served at ws://addr/ahrsweb.
func NewListener(addr string) (l *Listener, err error) {
	l = &Listener{
		u:    url.URL{Scheme: "ws", Host: addr, Path: "/ahrsweb"},
		data: new(AHRSData),
	}
	if err = l.connect(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Listener) connect() (err error) {
	l.c, _, err = websocket.DefaultDialer.Dial(l.u.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "ahrsweb: dialing %s", l.u.String())
	}
	// Drain incoming frames so control messages are handled.
	go func(c *websocket.Conn) {
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}(l.c)
	return nil
}

// Send publishes rec. On a write failure it reconnects and drops the message.
func (l *Listener) Send(rec *ahrs.Record) error {
	l.data.update(rec)

	msg, err := json.Marshal(l.data)
	if err != nil {
		log.WithError(err).Errorf("Error marshalling json data: %+v", l.data)
		return errors.Wrap(err, "ahrsweb: marshalling")
	}
	if err = l.c.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.WithError(err).Warn("Error writing to websocket, reconnecting")
		l.c.Close()
		if err2 := l.connect(); err2 != nil {
			return errors.Wrapf(err, "ahrsweb: %v", err2)
		}
		return errors.Wrap(err, "ahrsweb: message dropped")
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (l *Listener) Close() error {
	err := l.c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if cerr := l.c.Close(); err == nil {
		err = cerr
	}
	return err
}
