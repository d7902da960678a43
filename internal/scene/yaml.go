package scene

import (
	"fmt"
	"io"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/mathx"
	"gopkg.in/yaml.v3"
)

// Listing is the human-editable form of a scene file.
type Listing struct {
	Entities []ListingEntry `yaml:"entities"`
}

// ListingEntry describes one entity. Type names win over TypeID when both
// are set; TypeID keeps records of types this build does not know.
type ListingEntry struct {
	Type     string     `yaml:"type,omitempty"`
	TypeID   uint32     `yaml:"type_id,omitempty"`
	Position [3]float32 `yaml:"position,flow"`
	Rotation [4]float32 `yaml:"rotation,flow"` // w, x, y, z
	Scale    [3]float32 `yaml:"scale,flow"`
}

// ToListing converts records, resolving type names through types.
func ToListing(recs []Record, types *behavior.Registry) Listing {
	l := Listing{Entities: make([]ListingEntry, 0, len(recs))}
	for _, rec := range recs {
		tr := rec.Transform.Decompose()
		e := ListingEntry{
			TypeID:   rec.TypeID,
			Position: [3]float32{tr.Position.X, tr.Position.Y, tr.Position.Z},
			Rotation: [4]float32{tr.Rotation.W, tr.Rotation.X, tr.Rotation.Y, tr.Rotation.Z},
			Scale:    [3]float32{tr.Scale.X, tr.Scale.Y, tr.Scale.Z},
		}
		if t, ok := types.Lookup(rec.TypeID); ok {
			e.Type = t.Name
			e.TypeID = 0
		}
		l.Entities = append(l.Entities, e)
	}
	return l
}

// Records converts the listing back into scene records.
func (l Listing) Records() ([]Record, error) {
	recs := make([]Record, 0, len(l.Entities))
	for i, e := range l.Entities {
		id := e.TypeID
		if e.Type != "" {
			id = behavior.TypeID(e.Type)
		}
		if id == 0 {
			return nil, fmt.Errorf("entity %d: no type or type_id", i)
		}
		scale := mathx.Vector3{X: e.Scale[0], Y: e.Scale[1], Z: e.Scale[2]}
		if scale == mathx.Zero {
			scale = mathx.One
		}
		// a zero rotation normalizes to identity
		rot := mathx.Quaternion{W: e.Rotation[0], X: e.Rotation[1], Y: e.Rotation[2], Z: e.Rotation[3]}
		tr := mathx.Transform{
			Position: mathx.Vector3{X: e.Position[0], Y: e.Position[1], Z: e.Position[2]},
			Rotation: rot.Normalized(),
			Scale:    scale,
		}
		recs = append(recs, Record{TypeID: id, Transform: tr.Matrix()})
	}
	return recs, nil
}

func EncodeYAML(w io.Writer, l Listing) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode scene listing: %w", err)
	}
	return enc.Close()
}

func DecodeYAML(r io.Reader) (Listing, error) {
	var l Listing
	if err := yaml.NewDecoder(r).Decode(&l); err != nil {
		return Listing{}, fmt.Errorf("decode scene listing: %w", err)
	}
	return l, nil
}
