package rcon

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config holds RCON client settings.
type Config struct {
	Host           string
	Port           int
	Password       string
	CommandTimeout time.Duration
	QuietPeriod    time.Duration
	DialTimeout    time.Duration
}

const (
	DefaultCommandTimeout = 750 * time.Millisecond
	DefaultQuietPeriod    = 50 * time.Millisecond
	DefaultDialTimeout    = 5 * time.Second
)

const (
	disconnectDirective = "Disconnect"
	goodbyeReply        = "Goodbye\r\n"
)

var errClientClosed = errors.New("rcon: client closed")

// Client maintains one RCON connection. Commands from any number of goroutines
// are serialized so that exactly one is in flight at a time.
//
// All connection, queue and receive state is owned by a single event loop
// goroutine; readers, timers and callers hand it work through post.
type Client struct {
	cfg  Config
	addr string
	hash string
	log  *zap.Logger
	obs  Observer

	lifecycle sync.Mutex

	events    chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// loop-owned
	sess       *session
	state      State
	queue      commandQueue
	rx         receiveBuffer
	counter    uint64
	sessionSeq uint64

	connected atomic.Bool
	current   atomic.Int32
}

// NewClient creates a client and starts its event loop. It does not connect;
// call Connect, or hand the client to a Supervisor. Call Close to release it.
func NewClient(cfg Config, log *zap.Logger, obs Observer) *Client {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	sum := md5.Sum([]byte(cfg.Password))
	c := &Client{
		cfg:    cfg,
		addr:   addr,
		hash:   hex.EncodeToString(sum[:]),
		log:    log.Named("rcon").With(zap.String("addr", addr)),
		obs:    obs,
		events: make(chan func()),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.loop()
	return c
}

// Addr returns the server address the client dials.
func (c *Client) Addr() string { return c.addr }

// Connected reports whether a socket is open.
func (c *Client) Connected() bool { return c.connected.Load() }

// State returns the current lifecycle state.
func (c *Client) State() State { return State(c.current.Load()) }

// Connect opens a new session, replacing any existing one, and authenticates.
// It returns nil only once both the TCP connect and the login exchange succeed.
func (c *Client) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return normalize(c.log, c.connect(ctx))
}

// Disconnect says goodbye to the server and closes the socket. It is a no-op
// when not connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return normalize(c.log, c.disconnect(ctx))
}

// SendCommand queues text for the server and returns its raw reply.
func (c *Client) SendCommand(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(disconnectDirective)) {
		return "", InvalidCommand
	}
	cmd, ok := c.submit(text, true)
	if !ok {
		return "", Disconnected
	}
	reply, err := c.await(ctx, cmd)
	if err != nil {
		return "", normalize(c.log, err)
	}
	return string(reply), nil
}

// Close stops the event loop and drops the socket without the Disconnect
// exchange. Pending commands fail with Disconnected.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
}

func (c *Client) connect(ctx context.Context) error {
	if err := c.disconnect(ctx); err != nil {
		c.log.Warn("disconnect before connect failed", zap.Error(err))
	}
	if !c.run(func() { c.setState(StateConnecting, nil) }) {
		return Disconnected
	}

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.log.Error("SOCKET_ERROR", zap.Error(err))
		c.run(func() {
			if c.sess == nil {
				c.setState(StateDisconnected, err)
			}
		})
		return SocketError
	}

	// The probe is queued in the same loop step that starts the reader, so the
	// server's greeting always finds it waiting.
	var s *session
	probe := newCommand("", c.cfg.CommandTimeout)
	if !c.run(func() {
		c.teardown(nil)
		c.sessionSeq++
		s = &session{id: c.sessionSeq, conn: conn}
		c.sess = s
		c.setState(StateConnecting, nil)
		c.enqueue(probe)
		go c.readLoop(s)
	}) {
		_ = conn.Close()
		return Disconnected
	}

	if err := c.authenticate(ctx, probe); err != nil {
		c.run(func() {
			if c.sess == s {
				c.teardown(err)
			}
		})
		return err
	}

	ready := false
	c.run(func() {
		if c.sess == s {
			c.setState(StateReady, nil)
			ready = true
		}
	})
	if !ready {
		return Disconnected
	}
	c.log.Info("connected", zap.Uint64("session", s.id))
	return nil
}

func (c *Client) disconnect(ctx context.Context) error {
	var (
		s   *session
		cmd *command
	)
	if !c.run(func() {
		if c.sess == nil {
			return
		}
		s = c.sess
		c.setState(StateDisconnecting, nil)
		cmd = newCommand(disconnectDirective, c.cfg.CommandTimeout)
		c.enqueue(cmd)
	}) || cmd == nil {
		return nil
	}

	reply, err := c.await(ctx, cmd)
	c.run(func() {
		if c.sess == s {
			c.teardown(nil)
		}
	})
	switch {
	case errors.Is(err, Disconnected):
		// The server hung up before the goodbye was assembled.
		return nil
	case err != nil:
		return err
	}
	if string(reply) != goodbyeReply {
		c.log.Warn("unexpected disconnect reply", zap.ByteString("reply", reply))
	}
	c.log.Info("disconnected", zap.Uint64("session", s.id))
	return nil
}

// submit hands a new command to the loop. Gated commands are refused unless the
// session has finished authenticating.
func (c *Client) submit(payload string, gated bool) (*command, bool) {
	cmd := newCommand(payload, c.cfg.CommandTimeout)
	ok := c.post(func() {
		if gated && c.state != StateReady {
			cmd.done <- result{kind: Disconnected}
			return
		}
		c.enqueue(cmd)
	})
	return cmd, ok
}

// await blocks for the command's completion. If ctx ends first the command
// stays queued and its result is dropped.
func (c *Client) await(ctx context.Context, cmd *command) ([]byte, error) {
	select {
	case res := <-cmd.done:
		return res.reply, res.err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-c.quit:
			c.teardown(errClientClosed)
			return
		}
	}
}

// post hands fn to the loop. It returns false once the client is closed.
func (c *Client) post(fn func()) bool {
	select {
	case c.events <- fn:
		return true
	case <-c.quit:
		return false
	}
}

// run posts fn and waits for the loop to execute it.
func (c *Client) run(fn func()) bool {
	done := make(chan struct{})
	if !c.post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	<-done
	return true
}

// teardown closes the socket and fails the command awaiting a reply. Commands
// queued behind it fail as they reach the head and find no socket.
func (c *Client) teardown(reason error) {
	if c.sess == nil {
		return
	}
	c.sess.close()
	c.sess = nil
	c.discardReply()
	c.setState(StateDisconnected, reason)
	if head := c.queue.head(); head != nil {
		c.complete(head, result{kind: Disconnected})
	}
}

func (c *Client) setState(to State, reason error) {
	c.connected.Store(c.sess != nil)
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	c.current.Store(int32(to))
	c.log.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", to), zap.NamedError("reason", reason))
	c.obs.StateChanged(from, to, reason)
}
