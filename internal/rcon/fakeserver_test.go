package rcon

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const testPassword = "hunter2"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func hashOf(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// fakeServer is a scripted RCON server: tests drive each accepted connection
// explicitly.
type fakeServer struct {
	t     *testing.T
	ln    net.Listener
	conns chan net.Conn

	mu       sync.Mutex
	accepted []net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skip("no listener:", err)
	}
	f := &fakeServer{t: t, ln: ln, conns: make(chan net.Conn, 8)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.accepted = append(f.accepted, conn)
			f.mu.Unlock()
			f.conns <- conn
		}
	}()
	t.Cleanup(f.close)
	return f
}

func (f *fakeServer) close() {
	_ = f.ln.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.accepted {
		_ = c.Close()
	}
}

func (f *fakeServer) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeServer) accept() *fakeConn {
	f.t.Helper()
	select {
	case conn := <-f.conns:
		return &fakeConn{t: f.t, conn: conn}
	case <-time.After(2 * time.Second):
		f.t.Fatal("timeout waiting for client connection")
		return nil
	}
}

type fakeConn struct {
	t    *testing.T
	conn net.Conn
}

func (c *fakeConn) send(s string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(s))
	require.NoError(c.t, err)
}

// expect reads exactly len(want) bytes and compares them.
func (c *fakeConn) expect(want string) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, len(want))
	_, err := io.ReadFull(c.conn, buf)
	require.NoError(c.t, err)
	require.Equal(c.t, want, string(buf))
}

// expectSilence fails if anything arrives within d.
func (c *fakeConn) expectSilence(d time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
	buf := make([]byte, 64)
	n, err := c.conn.Read(buf)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return
	}
	c.t.Fatalf("expected silence, got %q (err %v)", buf[:n], err)
}

// login answers both authentication steps.
func (c *fakeConn) login() {
	c.t.Helper()
	c.send(passwordPrompt)
	c.expect(hashOf(testPassword))
	c.send(authenticatedReply)
}

func (c *fakeConn) close() {
	_ = c.conn.Close()
}

type testOption func(*Config)

func newTestClient(t *testing.T, port int, opts ...testOption) *Client {
	return newTestClientWithLogger(t, port, zaptest.NewLogger(t), nil, opts...)
}

func newTestClientWithLogger(t *testing.T, port int, log *zap.Logger, obs Observer, opts ...testOption) *Client {
	t.Helper()
	cfg := Config{
		Host:           "127.0.0.1",
		Port:           port,
		Password:       testPassword,
		CommandTimeout: 2 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	c := NewClient(cfg, log, obs)
	t.Cleanup(c.Close)
	return c
}

func withCommandTimeout(d time.Duration) testOption {
	return func(cfg *Config) { cfg.CommandTimeout = d }
}

func withPassword(p string) testOption {
	return func(cfg *Config) { cfg.Password = p }
}

// connectAsync starts Connect and returns the channel its result lands on.
func connectAsync(c *Client) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- c.Connect(context.Background()) }()
	return ch
}

type sendResult struct {
	reply string
	err   error
}

func sendAsync(c *Client, text string) <-chan sendResult {
	ch := make(chan sendResult, 1)
	go func() {
		reply, err := c.SendCommand(context.Background(), text)
		ch <- sendResult{reply: reply, err: err}
	}()
	return ch
}

func waitResult[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for result")
		var zero T
		return zero
	}
}

// connectedClient returns a client that has completed the login exchange.
func connectedClient(t *testing.T, opts ...testOption) (*Client, *fakeConn) {
	t.Helper()
	srv := newFakeServer(t)
	c := newTestClient(t, srv.port(), opts...)
	done := connectAsync(c)
	conn := srv.accept()
	conn.login()
	require.NoError(t, waitResult(t, done))
	return c, conn
}

// queueLen reads the queue length on the loop.
func (c *Client) queueLen() int {
	n := -1
	c.run(func() { n = c.queue.len() })
	return n
}
