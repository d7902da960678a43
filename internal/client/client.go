package client

import (
	"context"
	"errors"
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"go.uber.org/zap"
)

var ErrDisconnected = errors.New("connection to server lost")

// Client drives a State over a server connection.
type Client struct {
	State *State
	sess  *net.Session
	log   *zap.Logger
}

// Dial connects to addr and introduces the player.
func Dial(ctx context.Context, addr string, cfg *config.Config, types *behavior.Registry, log *zap.Logger) (*Client, error) {
	dctx, cancel := context.WithTimeout(ctx, cfg.Network.DialTimeout)
	defer cancel()
	sess, err := net.Dial(dctx, addr, cfg.Network.InQueueSize, cfg.Network.OutQueueSize, log)
	if err != nil {
		return nil, err
	}
	c := &Client{
		State: NewState(types, cfg.Client, log),
		sess:  sess,
		log:   log,
	}
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_HELLO)
	w.WriteS(cfg.Client.Name)
	w.WriteS(cfg.Client.Password)
	sess.Send(w.Bytes())
	sess.FlushOutput()

	log.Info("connected", zap.String("server", addr))
	return c, nil
}

// Poll applies every message received so far.
func (c *Client) Poll() error {
	for {
		select {
		case data := <-c.sess.InQueue:
			if err := c.State.Handle(data); err != nil {
				if errors.Is(err, ErrRejected) {
					return err
				}
				c.log.Debug("bad server message", zap.Error(err))
			}
		default:
			if c.sess.IsClosed() {
				return ErrDisconnected
			}
			return nil
		}
	}
}

// Step polls, advances the local state and sends the resulting controls.
func (c *Client) Step(dt time.Duration, in Input) error {
	if err := c.Poll(); err != nil {
		return err
	}
	if frame, ok := c.State.Step(dt, in); ok {
		c.sess.Send(frame.Packet())
	}
	c.sess.FlushOutput()
	return nil
}

// SetName asks the server to rename the player.
func (c *Client) SetName(name string) {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_SET_NAME)
	w.WriteS(name)
	c.sess.Send(w.Bytes())
}

// SendCustom sends a game-defined message.
func (c *Client) SendCustom(data []byte) {
	c.sess.Send(data)
}

// Run steps every dt until ctx ends or the connection fails. sample is
// called once per step for the local input.
func (c *Client) Run(ctx context.Context, dt time.Duration, sample func() Input) error {
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Step(dt, sample()); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) Close() {
	c.sess.Close()
}
