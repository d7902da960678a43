package net

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/net/packet"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 10 * time.Second

// transport moves whole frames over one connection.
type transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
	RemoteAddr() string
}

// tcpTransport frames a stream connection with the length-prefixed codec.
type tcpTransport struct {
	conn    net.Conn
	timeout time.Duration
}

func (t tcpTransport) ReadFrame() ([]byte, error) { return ReadFrame(t.conn) }

func (t tcpTransport) WriteFrame(data []byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(orDefault(t.timeout)))
	return WriteFrame(t.conn, data)
}

func (t tcpTransport) Close() error       { return t.conn.Close() }
func (t tcpTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultWriteTimeout
	}
	return d
}

// Session represents a single connection. Network I/O runs in dedicated
// goroutines; everything else is accessed only from the game loop.
type Session struct {
	id    uint64
	tr    transport
	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads packets from here
	OutQueue chan []byte // writer goroutine reads from here

	IP   string
	Name string

	controls    control.Frame // latest control frame (game loop only)
	hasControls bool

	outBuf [][]byte // buffered packets, flushed by the output system (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	drainCh   chan struct{}
	drainOnce sync.Once

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	log *zap.Logger
}

// NewSession wraps a stream connection.
func NewSession(conn net.Conn, id uint64, inSize, outSize, pktPerSec int, log *zap.Logger) *Session {
	return newSession(tcpTransport{conn: conn, timeout: defaultWriteTimeout}, id, inSize, outSize, pktPerSec, log)
}

func newSession(tr transport, id uint64, inSize, outSize, pktPerSec int, log *zap.Logger) *Session {
	s := &Session{
		id:        id,
		tr:        tr,
		InQueue:   make(chan []byte, inSize),
		OutQueue:  make(chan []byte, outSize),
		IP:        tr.RemoteAddr(),
		closeCh:   make(chan struct{}),
		drainCh:   make(chan struct{}),
		pktPerSec: pktPerSec,
		log:       log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

// Dial opens a client-side session to a server.
func Dial(ctx context.Context, addr string, inSize, outSize int, log *zap.Logger) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	s := NewSession(conn, 0, inSize, outSize, 0, log)
	s.Start()
	return s, nil
}

func (s *Session) ID() uint64 { return s.id }

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Controls returns the latest control frame received from the peer.
func (s *Session) Controls() (control.Frame, bool) {
	return s.controls, s.hasControls
}

// SetControls replaces the latest control frame. Game loop only.
func (s *Session) SetControls(f control.Frame) {
	s.controls = f
	s.hasControls = true
}

// Send buffers a packet. It is not written until FlushOutput runs.
// Game loop only.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput drains the output buffer to OutQueue for the writer goroutine.
// If OutQueue is full the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow connection")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.tr.Close()
	})
}

// CloseAfterFlush flushes pending output and closes the session once the
// writer has sent everything queued so far. Game loop only.
func (s *Session) CloseAfterFlush() {
	s.SetState(packet.StateDisconnecting)
	s.FlushOutput()
	s.drainOnce.Do(func() { close(s.drainCh) })
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

// readLoop reads frames and pushes them onto InQueue for the game loop.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		payload, err := s.tr.ReadFrame()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		// Blocking only stalls this connection's reader.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes packets from OutQueue to the transport.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOne(data) {
				return
			}
		case <-s.drainCh:
			for {
				select {
				case data := <-s.OutQueue:
					if !s.writeOne(data) {
						return
					}
				default:
					return
				}
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(data []byte) bool {
	if len(data) > 0 {
		s.log.Debug("TX",
			zap.String("op", fmt.Sprintf("0x%02X(%d)", data[0], data[0])),
			zap.Int("len", len(data)),
		)
	}
	if err := s.tr.WriteFrame(data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
