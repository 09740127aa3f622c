package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// KeepAlive configures read limits and the ping/pong deadlines of a socket.
type KeepAlive struct {
	MaxMessageBytes int64
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
}

func (k *KeepAlive) setDefaults() {
	if k.MaxMessageBytes <= 0 {
		k.MaxMessageBytes = 1 << 20
	}
	if k.PingInterval <= 0 {
		k.PingInterval = 15 * time.Second
	}
	if k.PongWait <= k.PingInterval {
		k.PongWait = 2 * k.PingInterval
	}
	if k.WriteWait <= 0 {
		k.WriteWait = 5 * time.Second
	}
}

// wsConn adapts a gorilla connection to relay.Conn. The relay writes from a
// single goroutine; pings and the close frame go through WriteControl, which
// gorilla allows concurrently with that writer.
type wsConn struct {
	conn *websocket.Conn
	ka   KeepAlive

	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, ka KeepAlive) *wsConn {
	wc := &wsConn{
		conn:   c,
		ka:     ka,
		closed: make(chan struct{}),
	}

	c.SetReadLimit(ka.MaxMessageBytes)
	_ = c.SetReadDeadline(time.Now().Add(ka.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(ka.PongWait))
	})

	go wc.pingLoop()
	return wc
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.ka.WriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with code and reason, then drops the socket.
func (c *wsConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.ka.WriteWait))
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.ka.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.ka.WriteWait)); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
