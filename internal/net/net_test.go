package net

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{1, 2, 3}))
	assert.Equal(t, []byte{5, 0, 1, 2, 3}, buf.Bytes())

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	_, err = ReadFrame(bytes.NewReader([]byte{2, 0}))
	assert.Error(t, err)
	_, err = ReadFrame(bytes.NewReader([]byte{9, 0, 1}))
	assert.Error(t, err)
	assert.Error(t, WriteFrame(&buf, make([]byte, 0x10000)))
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet")
		return nil
	}
}

func acceptOne(t *testing.T, srv *Server) *Session {
	t.Helper()
	select {
	case s := <-srv.NewSessions():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session")
		return nil
	}
}

func TestTCPSessionExchange(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8, 8, 0, zap.NewNop())
	require.NoError(t, err)
	defer srv.Shutdown()
	go srv.AcceptLoop()

	cli, err := Dial(context.Background(), srv.Addr().String(), 8, 8, zap.NewNop())
	require.NoError(t, err)
	defer cli.Close()
	peer := acceptOne(t, srv)
	assert.NotZero(t, peer.ID())
	assert.Equal(t, packet.StateHandshake, peer.State())

	frame := control.Frame{Buttons: control.Forward, Yaw: 12}
	cli.Send(frame.Packet())
	cli.FlushOutput()

	r := packet.NewReader(receive(t, peer.InQueue))
	require.Equal(t, packet.C_OPCODE_CONTROLS, r.Opcode())
	assert.Equal(t, frame, control.Decode(r))

	peer.Send([]byte{packet.S_OPCODE_WELCOME, 1, 0, 0, 0})
	peer.FlushOutput()
	assert.Equal(t, []byte{packet.S_OPCODE_WELCOME, 1, 0, 0, 0}, receive(t, cli.InQueue))

	peer.Send([]byte{packet.S_OPCODE_REJECT, 'x', 0})
	peer.CloseAfterFlush()
	assert.Equal(t, []byte{packet.S_OPCODE_REJECT, 'x', 0}, receive(t, cli.InQueue))
	select {
	case <-cli.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not observe close")
	}
	assert.True(t, peer.IsClosed())
	srv.Shutdown()
}

func TestWebSocketSession(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8, 8, 0, zap.NewNop())
	require.NoError(t, err)
	defer srv.Shutdown()

	hs := httptest.NewServer(srv.WebSocketHandler())
	defer hs.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	peer := acceptOne(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ignored")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{packet.C_OPCODE_SET_NAME, 'a', 0}))
	assert.Equal(t, []byte{packet.C_OPCODE_SET_NAME, 'a', 0}, receive(t, peer.InQueue))

	peer.Send([]byte{packet.S_OPCODE_REJECT, 0})
	peer.FlushOutput()
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, []byte{packet.S_OPCODE_REJECT, 0}, data)
}

func TestServeWebSocketStopsOnShutdown(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8, 8, 0, zap.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.ServeWebSocket(context.Background(), "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	srv.Shutdown()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("websocket listener still running after Shutdown")
	}
}

func TestSessionControlsAndStore(t *testing.T) {
	s := newSession(nopTransport{}, 5, 1, 1, 0, zap.NewNop())
	_, ok := s.Controls()
	assert.False(t, ok)
	s.SetControls(control.Frame{Yaw: 3})
	f, ok := s.Controls()
	assert.True(t, ok)
	assert.Equal(t, float32(3), f.Yaw)

	st := NewSessionStore()
	st.Add(s)
	st.Add(s)
	other := newSession(nopTransport{}, 9, 1, 1, 0, zap.NewNop())
	st.Add(other)
	assert.Equal(t, 2, st.Len())

	var seen []uint64
	st.ForEach(func(x *Session) {
		seen = append(seen, x.ID())
		st.Remove(x.ID())
	})
	assert.Equal(t, []uint64{5, 9}, seen)
	assert.Zero(t, st.Len())
	assert.Nil(t, st.Get(5))
}

func TestFlushOutputClosesOnBackpressure(t *testing.T) {
	s := newSession(nopTransport{}, 1, 1, 1, 0, zap.NewNop())
	s.Send([]byte{1})
	s.Send([]byte{2})
	s.FlushOutput()
	assert.True(t, s.IsClosed())
	assert.Equal(t, packet.StateDisconnecting, s.State())

	s.Send([]byte{3})
	assert.Empty(t, s.outBuf)
}

type nopTransport struct{}

func (nopTransport) ReadFrame() ([]byte, error) { select {} }
func (nopTransport) WriteFrame([]byte) error    { return nil }
func (nopTransport) Close() error               { return nil }
func (nopTransport) RemoteAddr() string         { return "test" }
