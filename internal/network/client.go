package network

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/curve/server/config"
)

const (
	// Time allowed to write a frame before the connection is considered dead
	writeWait = 10 * time.Second
	// Time allowed between reads; extended on every pong
	pongWait = 60 * time.Second
	// Ping cadence; must be shorter than pongWait
	pingPeriod = 30 * time.Second
)

var ErrConnectionClosed = errors.New("connection closed")

// Client adapts a single websocket to the message fabric. It mints the
// user's identity on accept, decodes inbound frames into ClientMessages
// for the sink, and serializes outbound writes through a buffered channel.
//
// A *Client is the ClientHandle the router and rooms broadcast through.
type Client struct {
	id   uuid.UUID
	ws   *websocket.Conn
	sink Sink

	sendChan chan []byte
	done     chan struct{}

	closeOnce sync.Once
	log       *logrus.Entry
}

// NewClient wraps an accepted websocket. Call Start to begin pumping.
func NewClient(ws *websocket.Conn, sink Sink, logger *logrus.Logger) *Client {
	id := uuid.New()
	return &Client{
		id:       id,
		ws:       ws,
		sink:     sink,
		sendChan: make(chan []byte, config.SendBufferSize),
		done:     make(chan struct{}),
		log:      logger.WithField("user", id),
	}
}

// ID is the player identity minted for this connection.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Start launches the read and write pumps. They run until the connection
// closes.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send queues a frame for delivery. Non-blocking: a full buffer drops the
// frame (the next update or sync converges the client), a closed
// connection reports ErrConnectionClosed.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	case c.sendChan <- data:
		return nil
	default:
		return nil
	}
}

// close tears the connection down once: the user is evicted from whatever
// room it was in via a synthesized leaveRoom, then the socket dies.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.sink.Deliver(ForwardedMessage{
			Message: ClientMessage{Type: TypeLeaveRoom},
			UserID:  c.id,
			Client:  c,
		})
		close(c.done)
		c.ws.Close()
		c.log.Info("connection closed")
	})
}

// writePump serializes all writes to the socket and keeps the connection
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.sendChan:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound frames and forwards them to the sink. Frames
// that fail to decode are answered with a faultyMessage and never leave
// this connection.
func (c *Client) readPump() {
	defer c.close()

	c.ws.SetReadLimit(config.MaxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("read error")
			}
			return
		}

		msg, err := DecodeClientMessage(data)
		if err != nil {
			c.log.WithError(err).Debug("faulty message")
			c.Send(EncodeFaultyMessage(string(data)))
			continue
		}

		c.sink.Deliver(ForwardedMessage{
			Message: msg,
			UserID:  c.id,
			Client:  c,
		})
	}
}
