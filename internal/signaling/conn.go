package signaling

import "sync"

// Conn is the server-side binding of one live transport session. StaffID is set
// while a staff identity is logged in on the connection and is empty for
// anonymous clients. Fields other than the channels are only touched under the
// switchboard lock.
type Conn struct {
	ID         string
	ClientName string
	StaffID    string

	send chan []byte
	kick chan struct{}

	closeOnce sync.Once
	kickOnce  sync.Once
	closed    bool
}

// NewConn builds a connection with a bounded outbound buffer.
func NewConn(id, clientName string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &Conn{
		ID:         id,
		ClientName: clientName,
		send:       make(chan []byte, buffer),
		kick:       make(chan struct{}),
	}
}

// Outbound yields frames queued for the client. It is closed once the
// connection has been reconciled.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// Kicked is closed when a newer login replaced this connection.
func (c *Conn) Kicked() <-chan struct{} {
	return c.kick
}

func (c *Conn) push(frame []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		c.closed = true
		close(c.send)
	})
}

func (c *Conn) replaced() {
	c.kickOnce.Do(func() { close(c.kick) })
}

func (c *Conn) displayName() string {
	if c.ClientName != "" {
		return c.ClientName
	}
	return "Visitor"
}
