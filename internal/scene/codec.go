// Package scene reads and writes scene files: the set of behavior-carrying
// entities of a scene with their types and transforms.
//
// Layout, little-endian:
//
//	magic    12 bytes  "GameLibScene"
//	version  uint16    0
//	count    uint32    N
//	N x { type-id uint32, transform 12 x float32 (3x4 matrix, row-major) }
package scene

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

const (
	Magic   = "GameLibScene"
	Version = uint16(0)

	headerSize = len(Magic) + 2 + 4
	recordSize = 4 + 12*4
)

var (
	ErrBadMagic           = errors.New("not a scene file")
	ErrUnsupportedVersion = errors.New("unsupported scene version")
)

// Record is one persisted entity.
type Record struct {
	TypeID    uint32
	Transform mathx.Matrix3x4
}

// Result summarizes a Read.
type Result struct {
	Loaded   []ecs.EntityID
	Skipped  int // records of unknown or non-editable types
	Declared int // entity count from the header
}

// ReadHeader validates magic and version and returns the entity count.
func ReadHeader(r io.Reader) (uint32, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, fmt.Errorf("read scene header: %w", err)
	}
	if !bytes.Equal(hdr[:len(Magic)], []byte(Magic)) {
		return 0, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(hdr[len(Magic):]); v != Version {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	return binary.LittleEndian.Uint32(hdr[len(Magic)+2:]), nil
}

func writeHeader(w io.Writer, count uint32) error {
	var hdr [headerSize]byte
	copy(hdr[:], Magic)
	binary.LittleEndian.PutUint16(hdr[len(Magic):], Version)
	binary.LittleEndian.PutUint32(hdr[len(Magic)+2:], count)
	_, err := w.Write(hdr[:])
	return err
}

func readRecord(r io.Reader) (Record, error) {
	var buf [recordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Record{}, err
	}
	rec := Record{TypeID: binary.LittleEndian.Uint32(buf[:4])}
	var f [12]float32
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4+i*4:]))
	}
	rec.Transform = mathx.MatrixFromFloats(f)
	return rec, nil
}

func writeRecord(w io.Writer, rec Record) error {
	var buf [recordSize]byte
	binary.LittleEndian.PutUint32(buf[:4], rec.TypeID)
	for i, v := range rec.Transform.Floats() {
		binary.LittleEndian.PutUint32(buf[4+i*4:], math.Float32bits(v))
	}
	_, err := w.Write(buf[:])
	return err
}

// ReadRecords decodes a whole scene file without applying it.
func ReadRecords(r io.Reader) ([]Record, error) {
	n, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, min(int(n), 4096))
	for i := uint32(0); i < n; i++ {
		rec, err := readRecord(r)
		if err != nil {
			return recs, fmt.Errorf("read scene record %d of %d: %w", i, n, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// WriteRecords encodes recs as a scene file.
func WriteRecords(w io.Writer, recs []Record) error {
	if err := writeHeader(w, uint32(len(recs))); err != nil {
		return fmt.Errorf("write scene header: %w", err)
	}
	for i, rec := range recs {
		if err := writeRecord(w, rec); err != nil {
			return fmt.Errorf("write scene record %d: %w", i, err)
		}
	}
	return nil
}

// Records lists the behavior-carrying entities of st in traversal order.
func Records(st *world.State) []Record {
	ids := st.WithBehavior()
	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		slot := st.BehaviorOf(id)
		recs = append(recs, Record{
			TypeID:    slot.Type.ID,
			Transform: st.Scene.Transform(id).Matrix(),
		})
	}
	return recs
}

// Write persists every behavior-carrying entity of st.
func Write(w io.Writer, st *world.State) error {
	return WriteRecords(w, Records(st))
}

// Read loads a scene file into st. The header is validated before any entity
// is created. Records of unknown or non-editable types are skipped with a
// warning. On a truncated file the entities created so far stay in st.
func Read(r io.Reader, st *world.State, enablePhysics bool, log *zap.Logger) (Result, error) {
	n, err := ReadHeader(r)
	if err != nil {
		return Result{}, err
	}
	res := Result{Declared: int(n)}
	for i := uint32(0); i < n; i++ {
		rec, err := readRecord(r)
		if err != nil {
			return res, fmt.Errorf("read scene record %d of %d: %w", i, n, err)
		}
		if id := Apply(st, rec, enablePhysics, log); id != 0 {
			res.Loaded = append(res.Loaded, id)
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

// Apply creates the entity described by rec. It returns 0 if the type is
// unknown or not editable.
func Apply(st *world.State, rec Record, enablePhysics bool, log *zap.Logger) ecs.EntityID {
	t, ok := st.Types.Lookup(rec.TypeID)
	if !ok {
		log.Warn("scene: unknown entity type, skipping", zap.String("type_id", fmt.Sprintf("%#08x", rec.TypeID)))
		return 0
	}
	if !t.Editable {
		log.Warn("scene: entity type is not editable, skipping", zap.String("type", t.Name))
		return 0
	}
	return st.Spawn(t, 0, rec.Transform.Decompose(), enablePhysics, nil)
}

// Save writes st to path atomically.
func Save(path string, st *world.State) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save scene %s: %w", path, err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".scene-*")
	if err != nil {
		return fmt.Errorf("save scene %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Write(bw, st); err != nil {
		tmp.Close()
		return fmt.Errorf("save scene %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("save scene %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save scene %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save scene %s: %w", path, err)
	}
	return nil
}

// Load reads the scene file at path into st.
func Load(path string, st *world.State, enablePhysics bool, log *zap.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("load scene: %w", err)
	}
	defer f.Close()

	res, err := Read(bufio.NewReader(f), st, enablePhysics, log)
	if err != nil {
		return res, fmt.Errorf("load scene %s: %w", path, err)
	}
	log.Info("scene loaded",
		zap.String("path", path),
		zap.Int("entities", len(res.Loaded)),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
