package rcon

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// command is one request awaiting exactly one completion.
type command struct {
	index     uint64
	payload   string
	timeout   time.Duration
	timer     *time.Timer
	sentAt    time.Time
	completed bool
	done      chan result
}

type result struct {
	reply []byte
	kind  ErrorKind
	cause error
}

func (r result) err() error {
	if r.kind == None {
		return nil
	}
	return r.kind
}

func newCommand(payload string, timeout time.Duration) *command {
	return &command{
		payload: payload,
		timeout: timeout,
		done:    make(chan result, 1),
	}
}

// commandQueue holds pending commands; items[0] is the one awaiting a reply.
type commandQueue struct {
	items []*command
}

func (q *commandQueue) head() *command {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// push appends cmd and reports whether the queue was empty before.
func (q *commandQueue) push(cmd *command) bool {
	q.items = append(q.items, cmd)
	return len(q.items) == 1
}

func (q *commandQueue) pop() *command {
	if len(q.items) == 0 {
		return nil
	}
	cmd := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return cmd
}

func (q *commandQueue) len() int { return len(q.items) }

// enqueue runs on the loop. A command reaching an empty queue is sent at once;
// otherwise it waits for its predecessor's completion to dispatch it.
func (c *Client) enqueue(cmd *command) {
	cmd.index = c.counter
	c.counter++
	if c.queue.push(cmd) {
		c.dispatch(cmd)
	}
}

func (c *Client) dispatch(cmd *command) {
	if c.sess == nil {
		c.complete(cmd, result{kind: Disconnected})
		return
	}
	cmd.sentAt = time.Now()
	cmd.timer = time.AfterFunc(cmd.timeout, func() {
		c.post(func() { c.expire(cmd) })
	})
	// An empty payload puts nothing on the wire; only an unsolicited server
	// message can answer it.
	if cmd.payload == "" {
		return
	}
	if err := c.sess.write([]byte(cmd.payload), cmd.timeout); err != nil {
		c.complete(cmd, result{kind: SocketError, cause: err})
	}
}

// expire fails cmd with ResponseTimeout. A timer that fires after cmd was
// already answered is ignored, so it cannot fail the successor.
func (c *Client) expire(cmd *command) {
	if cmd.completed {
		return
	}
	c.complete(cmd, result{kind: ResponseTimeout})
}

// complete finishes the head command and dispatches its successor before the
// caller is resolved.
func (c *Client) complete(cmd *command, res result) {
	if c.queue.head() != cmd {
		panic(fmt.Sprintf("rcon: command %d completed while not at the head of the queue", cmd.index))
	}
	c.queue.pop()
	cmd.completed = true
	if cmd.timer != nil {
		cmd.timer.Stop()
	}

	if next := c.queue.head(); next != nil {
		c.dispatch(next)
	}

	var elapsed time.Duration
	if !cmd.sentAt.IsZero() {
		elapsed = time.Since(cmd.sentAt)
	}
	if res.kind == SocketError {
		c.log.Error("SOCKET_ERROR", zap.Uint64("command", cmd.index), zap.Error(res.cause))
	}
	c.obs.CommandCompleted(res.kind, elapsed)
	cmd.done <- res
}
