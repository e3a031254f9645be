package rcon

import (
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

const readBufferSize = 4096

// session is one TCP connection. Only the loop goroutine writes to or closes it;
// its reader goroutine posts every read back to the loop.
type session struct {
	id     uint64
	conn   net.Conn
	closed bool
}

func (s *session) write(p []byte, timeout time.Duration) error {
	if timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err := s.conn.Write(p)
	return err
}

func (s *session) close() {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.Close()
}

func (c *Client) readLoop(s *session) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if !c.post(func() { c.onData(s, chunk) }) {
				return
			}
		}
		if err != nil {
			c.post(func() { c.onSocketClosed(s, err) })
			return
		}
	}
}

func (c *Client) onSocketClosed(s *session, err error) {
	if c.sess != s {
		return
	}
	if errors.Is(err, io.EOF) {
		c.log.Info("connection closed by server", zap.Uint64("session", s.id))
	} else {
		c.log.Warn("connection error", zap.Uint64("session", s.id), zap.Error(err))
	}
	c.teardown(err)
}
