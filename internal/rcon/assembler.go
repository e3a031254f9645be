package rcon

import (
	"bytes"
	"time"

	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

// keepalive is sent by the server periodically and must be echoed verbatim.
var keepalive = []byte("\r\n")

// receiveBuffer accumulates reply bytes. The protocol has no length prefix or
// terminator, so a reply ends when no data arrives for the quiet period.
type receiveBuffer struct {
	buf   *bytebufferpool.ByteBuffer
	timer *time.Timer
	gen   uint64
}

func (r *receiveBuffer) append(p []byte) {
	if r.buf == nil {
		r.buf = bytebufferpool.Get()
	}
	_, _ = r.buf.Write(p)
}

// take returns a copy of the accumulated bytes and releases the buffer.
func (r *receiveBuffer) take() []byte {
	if r.buf == nil {
		return []byte{}
	}
	out := append([]byte{}, r.buf.B...)
	bytebufferpool.Put(r.buf)
	r.buf = nil
	return out
}

func (r *receiveBuffer) stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
}

func (r *receiveBuffer) size() int {
	if r.buf == nil {
		return 0
	}
	return r.buf.Len()
}

func (c *Client) onData(s *session, chunk []byte) {
	if c.sess != s {
		return
	}
	if bytes.Equal(chunk, keepalive) {
		if err := s.write(keepalive, c.cfg.CommandTimeout); err != nil {
			c.log.Warn("keepalive echo failed", zap.Error(err))
		}
		c.log.Debug("keepalive")
		c.obs.KeepaliveEchoed()
		return
	}

	c.rx.append(chunk)
	c.rx.stop()
	gen := c.rx.gen
	c.rx.timer = time.AfterFunc(c.cfg.QuietPeriod, func() {
		c.post(func() {
			if c.rx.gen != gen {
				return
			}
			c.flushReply()
		})
	})
}

// flushReply hands the buffered bytes to the head command as its reply.
func (c *Client) flushReply() {
	c.rx.timer = nil
	reply := c.rx.take()
	if head := c.queue.head(); head != nil {
		c.complete(head, result{reply: reply})
		return
	}
	c.log.Warn("received reply without a pending command", zap.ByteString("data", reply))
	c.obs.OrphanedReply(len(reply))
}

// discardReply drops partial reply data when the session goes away.
func (c *Client) discardReply() {
	c.rx.stop()
	if n := c.rx.size(); n > 0 {
		c.log.Debug("dropping partial reply", zap.Int("bytes", n))
	}
	c.rx.take()
}
