// scenetool inspects and edits scene files offline.
//
// Usage:
//
//	go run ./cmd/scenetool <command> [flags]
//
// Commands:
//
//	dump  -in main.scene [-out main.yaml]   scene file -> YAML listing
//	build -in main.yaml -out main.scene     YAML listing -> scene file
//	place -scene main.scene -type Name -x 0 -z 0
//	push  -in main.scene [-name main] [-keep N]  store a revision in the database
//	pull  [-name main] -out main.scene      fetch the newest revision
//	types                                   list editable entity types
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/editor"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/persist"
	"github.com/gamelib/server/internal/scene"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	in := fs.String("in", "", "input file")
	out := fs.String("out", "", "output file (dump: default stdout)")
	scenePath := fs.String("scene", "", "scene file to edit")
	typeName := fs.String("type", "", "entity type to place")
	x := fs.Float64("x", 0, "placement x")
	z := fs.Float64("z", 0, "placement z")
	name := fs.String("name", "", "scene name in the database (default from config)")
	keep := fs.Int("keep", 0, "push: revisions to retain, 0 = all")
	_ = fs.Parse(os.Args[2:])

	types := behavior.NewRegistry()
	if err := behavior.RegisterBuiltins(types); err != nil {
		fatal(err)
	}
	log := zap.NewNop()

	var err error
	switch cmd {
	case "dump":
		err = withOutput(*out, func(w io.Writer) error { return dump(*in, w, types) })
	case "build":
		err = build(*in, *out)
	case "place":
		var id uint32
		id, err = place(*scenePath, *typeName, float32(*x), float32(*z), types, log)
		if err == nil {
			fmt.Printf("placed %s as entity %d\n", *typeName, id)
		}
	case "push":
		err = withRepo(*name, func(ctx context.Context, repo *persist.SceneRepo, scene string) error {
			return push(ctx, repo, scene, *in, *keep)
		})
	case "pull":
		err = withRepo(*name, func(ctx context.Context, repo *persist.SceneRepo, scene string) error {
			return pull(ctx, repo, scene, *out)
		})
	case "types":
		for _, t := range types.Editable() {
			fmt.Printf("%-24s %#08x\n", t.Name, t.ID)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: scenetool <dump|build|place|push|pull|types> [flags]")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}

func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// dump writes the YAML listing of the scene file at path.
func dump(path string, w io.Writer, types *behavior.Registry) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	recs, err := scene.ReadRecords(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return scene.EncodeYAML(w, scene.ToListing(recs, types))
}

// build converts a YAML listing into a scene file.
func build(in, out string) error {
	if in == "" || out == "" {
		return fmt.Errorf("build needs -in and -out")
	}
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	l, err := scene.DecodeYAML(f)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	recs, err := l.Records()
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	return withOutput(out, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := scene.WriteRecords(bw, recs); err != nil {
			return err
		}
		return bw.Flush()
	})
}

// place drops one entity of the named type onto the ground plane at x,z and
// saves the scene.
func place(path, typeName string, x, z float32, types *behavior.Registry, log *zap.Logger) (uint32, error) {
	if path == "" || typeName == "" {
		return 0, fmt.Errorf("place needs -scene and -type")
	}
	ed, err := editor.Open(path, types, nil, log)
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(ed.Brushes()); i++ {
		if t, ok := ed.Selected(); ok && t.Name == typeName {
			break
		}
		ed.Scroll(1)
	}
	if t, ok := ed.Selected(); !ok || t.Name != typeName {
		return 0, fmt.Errorf("%q is not an editable type", typeName)
	}
	if !ed.Aim(mathx.Vector3{X: x, Y: 100, Z: z}, mathx.Vector3{Y: -1}) {
		return 0, fmt.Errorf("no ground at %.2f,%.2f", x, z)
	}
	id := ed.Place()
	if err := ed.Close(); err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func withRepo(name string, fn func(context.Context, *persist.SceneRepo, string) error) error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("GAMELIB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if name == "" {
		name = cfg.Scene.Name
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if err := persist.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return fn(ctx, persist.NewSceneRepo(db), name)
}

func push(ctx context.Context, repo *persist.SceneRepo, name, in string, keep int) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	id, err := repo.Publish(ctx, name, data, keep)
	if err != nil {
		return err
	}
	fmt.Printf("stored %s revision %s\n", name, id)
	return nil
}

func pull(ctx context.Context, repo *persist.SceneRepo, name, out string) error {
	if out == "" {
		return fmt.Errorf("pull needs -out")
	}
	rev, err := repo.LoadLatest(ctx, name)
	if err != nil {
		return err
	}
	if rev == nil {
		return fmt.Errorf("scene %q has no stored revision", name)
	}
	if err := os.WriteFile(out, rev.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s revision %s (%d entities)\n", name, rev.ID, rev.Entities)
	return nil
}
