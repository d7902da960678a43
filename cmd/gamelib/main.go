package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/client"
	"github.com/gamelib/server/internal/config"
	gonet "github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/persist"
	"github.com/gamelib/server/internal/scene"
	"github.com/gamelib/server/internal/scripting"
	"github.com/gamelib/server/internal/sim"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}

	cfgPath := "config/server.toml"
	if p := os.Getenv("GAMELIB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	types := behavior.NewRegistry()
	if err := behavior.RegisterBuiltins(types); err != nil {
		return fmt.Errorf("register behaviors: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if args.Mode == config.ModeListen {
		return listen(ctx, args, cfg, types, log)
	}
	return connect(ctx, args, cfg, types, log)
}

func listen(ctx context.Context, args config.Args, cfg *config.Config, types *behavior.Registry, log *zap.Logger) error {
	cfg.Network.BindAddress = args.Addr()

	var game sim.Game = sim.DefaultGame{Config: cfg, Log: log}
	if cfg.Scripting.Dir != "" {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		game = scripting.NewGame(engine, game, cfg.Scene.EnablePhysics, log)
	}

	loadScene, closeDB, err := sceneLoader(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	srv, err := gonet.NewServer(cfg.Network.BindAddress, cfg.Network.InQueueSize, cfg.Network.OutQueueSize, cfg.Network.PacketsPerSecond, log)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Network.BindAddress, err)
	}
	srv.SetWriteTimeout(cfg.Network.WriteTimeout)

	s, err := sim.New(sim.Options{
		Config:    cfg,
		Log:       log,
		Game:      game,
		Types:     types,
		Source:    srv,
		LoadScene: loadScene,
	})
	if err != nil {
		srv.Shutdown()
		return err
	}
	s.OnShutdown(srv.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.AcceptLoop()
		return nil
	})
	if addr := cfg.Network.WebSocketAddress; addr != "" {
		g.Go(func() error { return srv.ServeWebSocket(gctx, addr) })
	}
	g.Go(func() error {
		// A listener failure cancels gctx and stops the loop.
		err := s.Run(gctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		srv.Shutdown()
		return err
	})

	log.Info("server ready",
		zap.String("name", cfg.Server.Name),
		zap.String("addr", srv.Addr().String()),
		zap.Duration("tick", s.TickRate()),
	)
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// sceneLoader returns the scene source selected by cfg.Scene.Source and a
// cleanup func for whatever it opened.
func sceneLoader(ctx context.Context, cfg *config.Config, log *zap.Logger) (func(*world.State) error, func(), error) {
	physics := cfg.Scene.EnablePhysics
	switch cfg.Scene.Source {
	case "file":
		return func(st *world.State) error {
			_, err := scene.Load(cfg.Scene.Path, st, physics, log)
			return err
		}, func() {}, nil
	case "db":
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := persist.RunMigrations(dbCtx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		repo := persist.NewSceneRepo(db)
		return func(st *world.State) error {
			_, err := repo.LoadInto(ctx, cfg.Scene.Name, st, physics, log)
			return err
		}, db.Close, nil
	default:
		return nil, func() {}, nil
	}
}

// connect runs a headless client that replicates the scene and sends
// neutral controls until interrupted.
func connect(ctx context.Context, args config.Args, cfg *config.Config, types *behavior.Registry, log *zap.Logger) error {
	c, err := client.Dial(ctx, args.Addr(), cfg, types, log)
	if err != nil {
		return fmt.Errorf("connect %s: %w", args.Addr(), err)
	}
	defer c.Close()

	err = c.Run(ctx, cfg.Server.TickRate, func() client.Input { return client.Input{} })
	if err != nil {
		return err
	}
	log.Info("disconnected", zap.Int("entities", c.State.World.Scene.Len()))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
