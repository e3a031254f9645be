package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavadmin/pavadmin/internal/rcon"
	"github.com/pavadmin/pavadmin/internal/state"
)

type stubRCon struct {
	reply string
	err   error
	got   []string
	state rcon.State
}

func (s *stubRCon) SendCommand(_ context.Context, text string) (string, error) {
	s.got = append(s.got, text)
	return s.reply, s.err
}

func (s *stubRCon) Connected() bool   { return s.state != rcon.StateDisconnected }
func (s *stubRCon) State() rcon.State { return s.state }

type stubEvents []state.Event

func (s stubEvents) Recent(n int) []state.Event {
	if n > len(s) || n <= 0 {
		return s
	}
	return s[len(s)-n:]
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestStatusForKind(t *testing.T) {
	cases := map[rcon.ErrorKind]int{
		rcon.None:            200,
		rcon.Disconnected:    503,
		rcon.ResponseTimeout: 400,
		rcon.InvalidCommand:  400,
		rcon.SocketError:     500,
		rcon.AuthFailed:      500,
		rcon.AuthIncorrect:   500,
		rcon.GeneralError:    500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusForKind(kind), kind.String())
	}
}

func TestCommand_Success(t *testing.T) {
	rc := &stubRCon{reply: `{"ServerInfo":{}}`, state: rcon.StateReady}
	s := NewServer("127.0.0.1:0", rc, Options{}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/command?cmd="+url.QueryEscape("SwitchMap UGC1 SND"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"ServerInfo":{}}`, rec.Body.String())
	assert.Equal(t, []string{"SwitchMap UGC1 SND"}, rc.got)
}

func TestCommand_Errors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		label  string
	}{
		{rcon.Disconnected, 503, "DISCONNECTED"},
		{rcon.ResponseTimeout, 400, "RESPONSE_TIMEOUT"},
		{rcon.InvalidCommand, 400, "INVALID_COMMAND"},
		{rcon.SocketError, 500, "SOCKET_ERROR"},
		{context.Canceled, 500, "GENERAL_ERROR"},
	}
	for _, tc := range cases {
		rc := &stubRCon{err: tc.err, state: rcon.StateReady}
		s := NewServer("127.0.0.1:0", rc, Options{}, nil)
		rec := do(t, s.Handler(), http.MethodGet, "/command?cmd=RefreshList")
		require.Equal(t, tc.status, rec.Code, tc.label)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Error)
		assert.Equal(t, tc.status, body.Status)
		assert.Equal(t, tc.label, body.Message)
		require.NotNil(t, body.ErrorCode)
		assert.Equal(t, int(rcon.KindOf(tc.err)), *body.ErrorCode)
	}
}

func TestCommand_MissingParam(t *testing.T) {
	rc := &stubRCon{state: rcon.StateReady}
	s := NewServer("127.0.0.1:0", rc, Options{}, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/command")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rc.got)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bad Parameters", body["message"])
	assert.Equal(t, true, body["error"])
	assert.NotContains(t, body, "errorCode")
}

func TestStatus(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	events := stubEvents{
		{Time: at, Type: "state", From: "disconnected", To: "connecting"},
		{Time: at, Type: "state", From: "connecting", To: "ready"},
	}
	rc := &stubRCon{state: rcon.StateReady}
	s := NewServer("127.0.0.1:0", rc, Options{Events: events}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/status?events=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body statusBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Connected)
	assert.Equal(t, "ready", body.State)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "ready", body.Events[0].To)

	rec = do(t, s.Handler(), http.MethodGet, "/status?events=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metric 1\n"))
	})
	s := NewServer("127.0.0.1:0", &stubRCon{}, Options{Metrics: metrics, MetricsPath: "/prom"}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/prom")
	assert.Equal(t, "metric 1\n", rec.Body.String())
}

func TestQuit(t *testing.T) {
	s := NewServer("127.0.0.1:0", &stubRCon{}, Options{}, nil)
	rec := do(t, s.Handler(), http.MethodPost, "/quit")
	require.Equal(t, http.StatusOK, rec.Code)
	select {
	case <-s.Quit():
	default:
		t.Fatal("quit channel not closed")
	}
	// A second request must not panic on a closed channel.
	do(t, s.Handler(), http.MethodPost, "/quit")
}
