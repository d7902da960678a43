// Package editor is a scene editing session: it opens a scene file with
// physics disabled, lets the user pick one of the editable behavior types as
// a brush, places instances on surfaces and writes the file back on close.
package editor

import (
	"errors"
	"io/fs"
	"sort"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/scene"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// groundLimit bounds how far away a ground plane hit is accepted.
const groundLimit = 9999

// Editor is one editing session. Not safe for concurrent use.
type Editor struct {
	State *world.State

	path      string
	brushes   []*behavior.Type
	selection int // index into brushes, -1 = none
	brush     ecs.EntityID
	rays      world.Raycaster
	log       *zap.Logger
}

// Open starts a session on path. A missing file starts an empty scene.
func Open(path string, types *behavior.Registry, rays world.Raycaster, log *zap.Logger) (*Editor, error) {
	e := &Editor{
		State:     world.NewState(types, log),
		path:      path,
		brushes:   types.Editable(),
		selection: -1,
		rays:      rays,
		log:       log,
	}
	if _, err := scene.Load(path, e.State, false, log); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return e, nil
}

// Brushes lists the editable types in selection order.
func (e *Editor) Brushes() []*behavior.Type { return e.brushes }

// Selected returns the current brush type, if any.
func (e *Editor) Selected() (*behavior.Type, bool) {
	if e.selection < 0 {
		return nil, false
	}
	return e.brushes[e.selection], true
}

// Selection returns the brush index, -1 for none.
func (e *Editor) Selection() int { return e.selection }

// Scroll moves the brush selection by wheel steps. The selection cycles
// through "none" and every editable type. The preview entity is dropped.
func (e *Editor) Scroll(wheel int) {
	slots := len(e.brushes) + 1
	e.selection += wheel
	for e.selection < -1 {
		e.selection += slots
	}
	for e.selection >= len(e.brushes) {
		e.selection -= slots
	}
	e.dropBrush()
}

// Brush returns the preview entity, or 0 while none is shown.
func (e *Editor) Brush() ecs.EntityID { return e.brush }

// Aim updates the preview for a pointer ray. The preview is shown on the
// first surface the ray hits, or on the ground plane, while a brush is
// selected. It reports whether a surface was found.
func (e *Editor) Aim(origin, dir mathx.Vector3) bool {
	pos, normal, ok := e.surface(origin, dir)
	t, selected := e.Selected()
	if !ok || !selected {
		e.dropBrush()
		return ok
	}
	if e.brush == 0 {
		e.brush = e.State.Spawn(t, 0, mathx.IdentityTransform, false, nil)
	}
	e.State.Scene.Node(e.brush).SetPosition(world.PlacementPosition(t, pos, normal))
	return true
}

// Place creates an instance of the selected type where the preview is. It
// returns 0 when nothing is selected or no preview is shown.
func (e *Editor) Place() ecs.EntityID {
	t, ok := e.Selected()
	if !ok || e.brush == 0 {
		return 0
	}
	id := e.State.Spawn(t, 0, e.State.Scene.Transform(e.brush), false, nil)
	e.log.Debug("placed", zap.String("type", t.Name), zap.Uint32("entity", uint32(id)))
	return id
}

// Close drops the preview and writes the scene back to its file.
func (e *Editor) Close() error {
	e.dropBrush()
	if err := scene.Save(e.path, e.State); err != nil {
		return err
	}
	e.log.Info("scene saved", zap.String("path", e.path), zap.Int("entities", e.State.Scene.Len()))
	return nil
}

func (e *Editor) dropBrush() {
	if e.brush != 0 {
		e.State.Remove(e.brush)
		e.brush = 0
	}
}

// surface finds the first hit other than the preview, falling back to the
// y=0 ground plane for rays pointing down from above it.
func (e *Editor) surface(origin, dir mathx.Vector3) (pos, normal mathx.Vector3, ok bool) {
	dir = dir.Normalized()
	if e.rays != nil {
		hits := e.rays.Raycast(origin, dir, mathx.Infinity)
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
		for _, h := range hits {
			if e.brush != 0 && h.Entity == e.brush {
				continue
			}
			return h.Position, h.Normal, true
		}
	}
	if origin.Y > 0 && dir.Y < 0 {
		pos = origin.Add(dir.Scale(-origin.Y / dir.Y))
		if pos.X > groundLimit || pos.X < -groundLimit || pos.Z > groundLimit || pos.Z < -groundLimit {
			return mathx.Vector3{}, mathx.Vector3{}, false
		}
		return pos, mathx.Up, true
	}
	return mathx.Vector3{}, mathx.Vector3{}, false
}
