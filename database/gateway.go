package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"omnilead-server/models"
)

// Gateway tries the networked store first and degrades to the local file
// store. Fallback events are logged, never returned to the caller; only a
// failure of every backend surfaces as ErrUnavailable.
type Gateway[T any, P Record[T]] struct {
	mu        sync.RWMutex
	primary   Store[T]
	secondary Store[T]
	logger    *zap.Logger
	now       func() time.Time
}

var _ Repository[models.Lead] = (*Gateway[models.Lead, *models.Lead])(nil)

// NewGateway wires a composite over primary (may be nil) and secondary.
func NewGateway[T any, P Record[T]](primary, secondary Store[T], logger *zap.Logger) *Gateway[T, P] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway[T, P]{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(zap.String("kind", string(P(new(T)).Kind()))),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Open builds the standard gateway for a kind: GORM when db is non-nil, and
// a JSON file under dataDir as the fallback.
func Open[T any, P Record[T]](db *gorm.DB, dataDir string, history int, logger *zap.Logger) *Gateway[T, P] {
	var primary Store[T]
	if db != nil {
		primary = NewSQLStore[T, P](db, history)
	}
	return NewGateway[T, P](primary, NewFileStore[T, P](dataDir, history), logger)
}

// SetPrimary installs the networked store, for when it was unreachable at
// startup and came up later.
func (g *Gateway[T, P]) SetPrimary(primary Store[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primary = primary
}

// HasPrimary reports whether a networked store is configured.
func (g *Gateway[T, P]) HasPrimary() bool {
	return g.primaryStore() != nil
}

func (g *Gateway[T, P]) primaryStore() Store[T] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.primary
}

// Kind returns the record kind served by this gateway.
func (g *Gateway[T, P]) Kind() models.Kind {
	return P(new(T)).Kind()
}

// Save assigns an id and creation time when missing and persists rec.
func (g *Gateway[T, P]) Save(ctx context.Context, rec *T) (*T, error) {
	primary := g.primaryStore()
	p := P(rec)
	if p.GetID() == "" {
		p.SetID(uuid.NewString())
	}
	if p.GetCreatedAt().IsZero() {
		p.SetCreatedAt(g.now())
	}
	if u, ok := any(rec).(updatedSetter); ok {
		u.SetUpdatedAt(p.GetCreatedAt())
	}

	if primary != nil {
		err := primary.Save(ctx, rec)
		if err == nil {
			return rec, nil
		}
		g.logger.Warn("primary store write failed, using local fallback",
			zap.String("id", p.GetID()), zap.Error(err))
	}

	if err := g.secondary.Save(ctx, rec); err != nil {
		g.logger.Error("fallback store write failed", zap.String("id", p.GetID()), zap.Error(err))
		return nil, fmt.Errorf("%w: save %s: %v", ErrUnavailable, g.Kind(), err)
	}
	return rec, nil
}

// List returns matching records newest first. Records still waiting in the
// fallback file are merged into primary results. When nothing can be read the
// result is empty rather than an error.
func (g *Gateway[T, P]) List(ctx context.Context, filter Filter) ([]T, error) {
	primary := g.primaryStore()
	local, localErr := g.secondary.List(ctx, filter)
	if localErr != nil {
		g.logger.Warn("fallback store read failed", zap.Error(localErr))
	}

	if primary != nil {
		remote, err := primary.List(ctx, filter)
		if err == nil {
			return g.mergeNewestFirst(remote, local), nil
		}
		g.logger.Warn("primary store read failed, using local fallback", zap.Error(err))
	}

	if localErr != nil {
		return []T{}, nil
	}
	if local == nil {
		local = []T{}
	}
	return local, nil
}

func (g *Gateway[T, P]) mergeNewestFirst(remote, local []T) []T {
	if len(local) == 0 {
		if remote == nil {
			return []T{}
		}
		return remote
	}
	seen := make(map[string]bool, len(remote))
	out := make([]T, 0, len(remote)+len(local))
	for i := range remote {
		seen[P(&remote[i]).GetID()] = true
		out = append(out, remote[i])
	}
	for i := range local {
		if !seen[P(&local[i]).GetID()] {
			out = append(out, local[i])
		}
	}
	sortNewestFirst[T, P](out)
	return out
}

// Count returns how many records match filter. With the networked store up,
// records still waiting in the fallback file are added to its count; sync
// removes them from the file once stored, so nothing is counted twice.
func (g *Gateway[T, P]) Count(ctx context.Context, filter Filter) (int64, error) {
	primary := g.primaryStore()
	local, localErr := g.secondary.Count(ctx, filter)
	if localErr != nil {
		g.logger.Warn("fallback store count failed", zap.Error(localErr))
		local = 0
	}

	if primary != nil {
		remote, err := primary.Count(ctx, filter)
		if err == nil {
			return remote + local, nil
		}
		g.logger.Warn("primary store count failed, using local fallback", zap.Error(err))
	}
	if localErr != nil {
		return 0, fmt.Errorf("%w: count %s: %v", ErrUnavailable, g.Kind(), localErr)
	}
	return local, nil
}

// Get looks the record up in the primary store, then in the fallback file.
func (g *Gateway[T, P]) Get(ctx context.Context, id string) (*T, error) {
	primary := g.primaryStore()
	var primaryErr error
	if primary != nil {
		rec, err := primary.Get(ctx, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			g.logger.Warn("primary store lookup failed", zap.String("id", id), zap.Error(err))
		}
		primaryErr = err
	}

	rec, err := g.secondary.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	return nil, g.classify("get", primaryErr, err)
}

// Update applies partial to the record wherever it lives.
func (g *Gateway[T, P]) Update(ctx context.Context, id string, partial map[string]any) (*T, error) {
	primary := g.primaryStore()
	if partial == nil {
		partial = map[string]any{}
	}
	if _, ok := any(new(T)).(updatedSetter); ok {
		if _, set := partial["updated_at"]; !set {
			partial["updated_at"] = g.now()
		}
	}

	var primaryErr error
	if primary != nil {
		rec, err := primary.Update(ctx, id, partial)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			g.logger.Warn("primary store update failed", zap.String("id", id), zap.Error(err))
		}
		primaryErr = err
	}

	rec, err := g.secondary.Update(ctx, id, partial)
	if err == nil {
		return rec, nil
	}
	return nil, g.classify("update", primaryErr, err)
}

// Delete removes the record from every backend and returns how many copies
// were removed.
func (g *Gateway[T, P]) Delete(ctx context.Context, id string) (int64, error) {
	primary := g.primaryStore()
	var (
		removed    int64
		primaryErr error
	)
	if primary != nil {
		n, err := primary.Delete(ctx, id)
		if err != nil {
			g.logger.Warn("primary store delete failed", zap.String("id", id), zap.Error(err))
			primaryErr = err
		}
		removed += n
	}

	n, err := g.secondary.Delete(ctx, id)
	if err != nil {
		g.logger.Warn("fallback store delete failed", zap.String("id", id), zap.Error(err))
		if primary == nil || primaryErr != nil {
			return removed, fmt.Errorf("%w: delete %s: %v", ErrUnavailable, g.Kind(), err)
		}
	}
	return removed + n, nil
}

// Sync replays records held by the fallback file into the primary store and
// drops them from the file once stored. It returns how many were moved.
func (g *Gateway[T, P]) Sync(ctx context.Context) (int, error) {
	primary := g.primaryStore()
	if primary == nil {
		return 0, nil
	}
	pending, err := g.secondary.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("read fallback %s: %w", g.Kind(), err)
	}

	synced := 0
	for i := range pending {
		rec := pending[i]
		id := P(&rec).GetID()
		if err := primary.Upsert(ctx, &rec); err != nil {
			return synced, fmt.Errorf("sync %s %s: %w", g.Kind(), id, err)
		}
		if _, err := g.secondary.Delete(ctx, id); err != nil {
			return synced, fmt.Errorf("drop synced %s %s: %w", g.Kind(), id, err)
		}
		synced++
	}
	if synced > 0 {
		g.logger.Info("fallback records synced to primary store", zap.Int("count", synced))
	}
	return synced, nil
}

// classify maps the outcome of a primary + fallback lookup to the error the
// caller sees. A miss in the fallback is only a NotFound when the primary was
// also reachable.
func (g *Gateway[T, P]) classify(op string, primaryErr, fallbackErr error) error {
	if errors.Is(fallbackErr, ErrNotFound) {
		if primaryErr == nil || errors.Is(primaryErr, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, op, g.Kind(), primaryErr)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, op, g.Kind(), fallbackErr)
}
