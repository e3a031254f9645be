package rcon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuth_WrongPrompt(t *testing.T) {
	srv := newFakeServer(t)
	c := newTestClient(t, srv.port())
	done := connectAsync(c)
	conn := srv.accept()

	conn.send("Welcome!\r\n")
	require.ErrorIs(t, waitResult(t, done), AuthFailed)
	require.False(t, c.Connected())
	require.Equal(t, StateDisconnected, c.State())
}

func TestAuth_IncorrectPassword(t *testing.T) {
	srv := newFakeServer(t)
	c := newTestClient(t, srv.port(), withPassword("wrong"))
	done := connectAsync(c)
	conn := srv.accept()

	conn.send(passwordPrompt)
	conn.expect(hashOf("wrong"))
	conn.send("Authenticated=0\r\n")
	require.ErrorIs(t, waitResult(t, done), AuthIncorrect)
	require.False(t, c.Connected())
}

func TestAuth_PromptSplitAcrossChunks(t *testing.T) {
	srv := newFakeServer(t)
	c := newTestClient(t, srv.port())
	done := connectAsync(c)
	conn := srv.accept()

	conn.send("Pass")
	time.Sleep(5 * time.Millisecond)
	conn.send("word: ")
	conn.expect(hashOf(testPassword))
	conn.send(authenticatedReply)
	require.NoError(t, waitResult(t, done))
}

func TestAuth_NoGreetingTimesOut(t *testing.T) {
	srv := newFakeServer(t)
	c := newTestClient(t, srv.port(), withCommandTimeout(100*time.Millisecond))
	done := connectAsync(c)
	conn := srv.accept()

	require.ErrorIs(t, waitResult(t, done), ResponseTimeout)
	require.False(t, c.Connected())
	conn.close()
}

func TestAuth_ServerHangsUpDuringLogin(t *testing.T) {
	srv := newFakeServer(t)
	c := newTestClient(t, srv.port())
	done := connectAsync(c)
	conn := srv.accept()

	conn.send(passwordPrompt)
	conn.expect(hashOf(testPassword))
	conn.close()
	require.ErrorIs(t, waitResult(t, done), Disconnected)
}

func TestAuth_ProbeSendsNothing(t *testing.T) {
	srv := newFakeServer(t)
	c := newTestClient(t, srv.port())
	done := connectAsync(c)
	conn := srv.accept()

	conn.expectSilence(100 * time.Millisecond)
	conn.login()
	require.NoError(t, waitResult(t, done))
}
