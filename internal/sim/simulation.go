// Package sim assembles the authoritative server: scene, players, packet
// handlers and the per-tick systems, driven one step at a time.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/core/event"
	coresys "github.com/gamelib/server/internal/core/system"
	"github.com/gamelib/server/internal/handler"
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/system"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// Options configures New. Config and Log are required.
type Options struct {
	Config *config.Config
	Log    *zap.Logger

	// Game defaults to DefaultGame.
	Game Game
	// Types defaults to a registry holding the built-in behaviors.
	Types *behavior.Registry
	// Source feeds network sessions; nil runs without a network.
	Source system.SessionSource
	// Clock defaults to time.Now.
	Clock system.Clock
	// LoadScene, if set, fills the scene before the game's InitServerScene.
	LoadScene func(st *world.State) error
}

// Simulation is one authoritative server instance. Everything except
// RequestStop runs on the game loop goroutine.
type Simulation struct {
	State    *world.State
	Players  *world.Players
	Sessions *net.SessionStore
	Packets  *packet.Registry

	cfg     *config.Config
	bus     *event.Bus
	runner  *coresys.Runner
	input   *system.InputSystem
	dt      time.Duration
	hooks   []func()
	stopped bool
	log     *zap.Logger
}

func New(opts Options) (*Simulation, error) {
	cfg, log := opts.Config, opts.Log
	game := opts.Game
	if game == nil {
		game = DefaultGame{Config: cfg, Log: log}
	}
	types := opts.Types
	if types == nil {
		types = behavior.NewRegistry()
		if err := behavior.RegisterBuiltins(types); err != nil {
			return nil, fmt.Errorf("register behaviors: %w", err)
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	st := world.NewState(types, log)
	players := world.NewPlayers(st, game, cfg.Server.RespawnDelay, log)

	s := &Simulation{
		State:    st,
		Players:  players,
		Sessions: net.NewSessionStore(),
		Packets:  packet.NewRegistry(log),
		cfg:      cfg,
		bus:      event.NewBus(),
		runner:   coresys.NewRunner(),
		dt:       cfg.Server.TickRate,
		log:      log,
	}

	deps := &handler.Deps{Config: cfg, Log: log, World: st, Players: players}
	handler.RegisterAll(s.Packets, deps)
	for op, fn := range game.CustomMessages() {
		if err := handler.RegisterCustom(s.Packets, deps, op, fn); err != nil {
			return nil, err
		}
	}

	if opts.LoadScene != nil {
		if err := opts.LoadScene(st); err != nil {
			return nil, fmt.Errorf("load scene: %w", err)
		}
	}
	if err := game.InitServerScene(st); err != nil {
		return nil, fmt.Errorf("init server scene: %w", err)
	}

	s.input = system.NewInputSystem(opts.Source, s.Packets, s.Sessions, players, cfg.Network.MaxPacketsPerTick, log)
	s.runner.Register(s.input)
	s.runner.Register(system.NewCollisionSystem(s.bus, st))
	s.runner.Register(system.NewBehaviorSystem(st, players, clock, log))
	s.runner.Register(system.NewRespawnSystem(players, clock))
	s.runner.Register(system.NewOutputSystem(st, s.Sessions))
	s.runner.Register(system.NewCleanupSystem(players, log))

	log.Info("simulation ready",
		zap.Int("entities", st.Scene.Len()),
		zap.Int("behavior_types", types.Len()),
		zap.Duration("tick", s.dt),
	)
	return s, nil
}

// OnShutdown registers fn to run once when the simulation stops.
func (s *Simulation) OnShutdown(fn func()) {
	s.hooks = append(s.hooks, fn)
}

// Tick advances the simulation by one step. It returns false once a stop
// was requested; the shutdown hooks have run by then.
func (s *Simulation) Tick() bool {
	if s.stopped {
		return false
	}
	if consumeStop() {
		s.shutdown()
		return false
	}
	s.runner.Tick(s.dt)
	return true
}

func (s *Simulation) shutdown() {
	s.stopped = true
	s.log.Info("simulation stopping", zap.Int("players", s.Players.Len()))
	for _, fn := range s.hooks {
		fn()
	}
	s.Sessions.CloseAll()
}

// Run ticks at the configured rate until a stop is requested or ctx ends.
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.dt)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !s.Tick() {
				return nil
			}
		case <-ctx.Done():
			RequestStop()
			s.Tick()
			return ctx.Err()
		}
	}
}

// ReportCollision queues a physics contact for delivery on the next tick.
func (s *Simulation) ReportCollision(ev event.PhysicsCollision) {
	event.Emit(s.bus, ev)
}

// TickRate is the simulated time per step.
func (s *Simulation) TickRate() time.Duration { return s.dt }

// SessionCount is the number of open network sessions.
func (s *Simulation) SessionCount() int { return s.input.SessionCount() }
