package net

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsTransport carries one packet per binary websocket message.
type wsTransport struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (t wsTransport) ReadFrame() ([]byte, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("empty websocket frame")
		}
		return data, nil
	}
}

func (t wsTransport) WriteFrame(data []byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(orDefault(t.timeout)))
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (t wsTransport) Close() error       { return t.conn.Close() }
func (t wsTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// WebSocketHandler upgrades HTTP requests into sessions fed to the same
// channel as TCP connections.
func (s *Server) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		s.adopt(wsTransport{conn: conn, timeout: s.writeTimeout})
	})
}

// ServeWebSocket serves the websocket endpoint at addr until ctx is done or
// the server shuts down.
func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.WebSocketHandler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("websocket listener started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("websocket listener: %w", err)
	case <-ctx.Done():
	case <-s.closeCh:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
