package net

import (
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Server accepts connections and creates Sessions. New and dead sessions are
// handed to the game loop through channels.
type Server struct {
	listener     net.Listener
	nextID       atomic.Uint64
	newConns     chan *Session
	deadCh       chan uint64
	inSize       int
	outSize      int
	pktPerSec    int
	writeTimeout time.Duration
	log          *zap.Logger
	closeCh      chan struct{}
	closed       atomic.Bool
}

func NewServer(bindAddr string, inSize, outSize, pktPerSec int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener:  ln,
		newConns:  make(chan *Session, 64),
		deadCh:    make(chan uint64, 64),
		inSize:    inSize,
		outSize:   outSize,
		pktPerSec: pktPerSec,
		log:       log,
		closeCh:   make(chan struct{}),
	}
	return s, nil
}

// AcceptLoop accepts TCP connections until Shutdown. Run it in its own goroutine.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		s.adopt(tcpTransport{conn: conn, timeout: s.writeTimeout})
	}
}

// adopt wraps a freshly accepted transport in a Session and queues it.
func (s *Server) adopt(tr transport) *Session {
	id := s.nextID.Add(1)
	sess := newSession(tr, id, s.inSize, s.outSize, s.pktPerSec, s.log)
	if s.closed.Load() {
		sess.Close()
		return sess
	}
	sess.Start()

	s.log.Info("connection accepted", zap.Uint64("session", id), zap.String("ip", sess.IP))

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("connection queue full, rejecting")
		sess.Close()
	}
	return sess
}

// SetWriteTimeout bounds each frame write on sessions accepted afterwards.
func (s *Server) SetWriteTimeout(d time.Duration) {
	s.writeTimeout = d
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections. Safe to call more than once.
func (s *Server) Shutdown() {
	if s.closed.Swap(true) {
		return
	}
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
