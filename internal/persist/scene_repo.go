package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gamelib/server/internal/scene"
	"github.com/gamelib/server/internal/world"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// SceneRevision is one stored copy of a scene file.
type SceneRevision struct {
	ID        uuid.UUID
	Name      string
	Entities  int
	Data      []byte // scene file bytes; nil in List results
	CreatedAt time.Time
}

type SceneRepo struct {
	db *DB
}

func NewSceneRepo(db *DB) *SceneRepo {
	return &SceneRepo{db: db}
}

// SaveBytes stores an encoded scene file as a new revision of name.
func (r *SceneRepo) SaveBytes(ctx context.Context, name string, data []byte) (uuid.UUID, error) {
	return r.Publish(ctx, name, data, 0)
}

// Publish stores data as a new revision of name and, when keep is positive,
// drops all but the newest keep revisions in the same transaction.
func (r *SceneRepo) Publish(ctx context.Context, name string, data []byte, keep int) (uuid.UUID, error) {
	count, err := scene.ReadHeader(bytes.NewReader(data))
	if err != nil {
		return uuid.Nil, fmt.Errorf("save scene %s: %w", name, err)
	}
	id := uuid.New()
	err = r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO scene_revisions (id, name, entity_count, data) VALUES ($1, $2, $3, $4)`,
			id, name, int32(count), data,
		); err != nil {
			return err
		}
		if keep > 0 {
			_, err := prune(ctx, tx, name, keep)
			return err
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("save scene %s: %w", name, err)
	}
	return id, nil
}

// Save encodes the editable entities of st and stores them as a new revision.
func (r *SceneRepo) Save(ctx context.Context, name string, st *world.State) (uuid.UUID, error) {
	var buf bytes.Buffer
	if err := scene.Write(&buf, st); err != nil {
		return uuid.Nil, fmt.Errorf("encode scene %s: %w", name, err)
	}
	return r.SaveBytes(ctx, name, buf.Bytes())
}

// LoadLatest returns the newest revision of name, or nil if none exists.
func (r *SceneRepo) LoadLatest(ctx context.Context, name string) (*SceneRevision, error) {
	rev := &SceneRevision{}
	var count int32
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, entity_count, data, created_at FROM scene_revisions
		 WHERE name = $1 ORDER BY created_at DESC LIMIT 1`, name,
	).Scan(&rev.ID, &rev.Name, &count, &rev.Data, &rev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load scene %s: %w", name, err)
	}
	rev.Entities = int(count)
	return rev, nil
}

// Load returns the revision with the given id, or nil if none exists.
func (r *SceneRepo) Load(ctx context.Context, id uuid.UUID) (*SceneRevision, error) {
	rev := &SceneRevision{}
	var count int32
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, entity_count, data, created_at FROM scene_revisions WHERE id = $1`, id,
	).Scan(&rev.ID, &rev.Name, &count, &rev.Data, &rev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load scene revision %s: %w", id, err)
	}
	rev.Entities = int(count)
	return rev, nil
}

// List returns up to limit revisions of name, newest first, without data.
func (r *SceneRepo) List(ctx context.Context, name string, limit int) ([]SceneRevision, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, entity_count, created_at FROM scene_revisions
		 WHERE name = $1 ORDER BY created_at DESC LIMIT $2`, name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list scene %s: %w", name, err)
	}
	defer rows.Close()

	var out []SceneRevision
	for rows.Next() {
		var rev SceneRevision
		var count int32
		if err := rows.Scan(&rev.ID, &rev.Name, &count, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scene revision: %w", err)
		}
		rev.Entities = int(count)
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep revisions of name.
func (r *SceneRepo) Prune(ctx context.Context, name string, keep int) (int64, error) {
	n, err := prune(ctx, r.db.Pool, name, keep)
	if err != nil {
		return 0, fmt.Errorf("prune scene %s: %w", name, err)
	}
	return n, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func prune(ctx context.Context, db execer, name string, keep int) (int64, error) {
	tag, err := db.Exec(ctx,
		`DELETE FROM scene_revisions WHERE name = $1 AND id NOT IN (
			SELECT id FROM scene_revisions WHERE name = $1 ORDER BY created_at DESC LIMIT $2
		)`, name, keep,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LoadInto reads the newest revision of name into st. A scene with no stored
// revision leaves st empty and is not an error.
func (r *SceneRepo) LoadInto(ctx context.Context, name string, st *world.State, enablePhysics bool, log *zap.Logger) (scene.Result, error) {
	rev, err := r.LoadLatest(ctx, name)
	if err != nil {
		return scene.Result{}, err
	}
	if rev == nil {
		log.Warn("scene not found in database, starting empty", zap.String("scene", name))
		return scene.Result{}, nil
	}
	res, err := scene.Read(bytes.NewReader(rev.Data), st, enablePhysics, log)
	if err != nil {
		return res, fmt.Errorf("load scene %s revision %s: %w", name, rev.ID, err)
	}
	log.Info("scene loaded",
		zap.String("scene", name),
		zap.String("revision", rev.ID.String()),
		zap.Int("entities", len(res.Loaded)),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
