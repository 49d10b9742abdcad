package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"omnilead-server/models"
)

var errDown = errors.New("connection refused")

// downStore fails every call as if the network store were unreachable.
type downStore[T any] struct{}

func (downStore[T]) Save(context.Context, *T) error   { return errDown }
func (downStore[T]) Upsert(context.Context, *T) error { return errDown }
func (downStore[T]) List(context.Context, Filter) ([]T, error) {
	return nil, errDown
}
func (downStore[T]) Count(context.Context, Filter) (int64, error) { return 0, errDown }
func (downStore[T]) Get(context.Context, string) (*T, error)      { return nil, errDown }
func (downStore[T]) Update(context.Context, string, map[string]any) (*T, error) {
	return nil, errDown
}
func (downStore[T]) Delete(context.Context, string) (int64, error) { return 0, errDown }

func newFileOnlyLeads(t *testing.T) *Gateway[models.Lead, *models.Lead] {
	t.Helper()
	return NewGateway[models.Lead](nil, NewFileStore[models.Lead](t.TempDir(), 0), zap.NewNop())
}

func TestGateway_SaveAssignsIDAndTimestamps(t *testing.T) {
	g := newFileOnlyLeads(t)

	saved, err := g.Save(context.Background(), &models.Lead{Name: "Ann", Phone: "1", Service: "Roofing"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	got, err := g.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestGateway_SaveKeepsSuppliedID(t *testing.T) {
	g := newFileOnlyLeads(t)
	lead := &models.Lead{Name: "Ann", Phone: "1", Service: "Roofing"}
	lead.ID = "given"

	saved, err := g.Save(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, "given", saved.ID)
}

func TestGateway_FallsBackWhenPrimaryDown(t *testing.T) {
	ctx := context.Background()
	fallback := NewFileStore[models.Lead](t.TempDir(), 0)
	g := NewGateway[models.Lead](downStore[models.Lead]{}, fallback, zap.NewNop())

	saved, err := g.Save(ctx, &models.Lead{Name: "Ann", Phone: "1", Service: "Roofing"})
	require.NoError(t, err)

	recs, err := fallback.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, saved.ID, recs[0].ID)

	listed, err := g.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	updated, err := g.Update(ctx, saved.ID, map[string]any{"status": "won"})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusWon, updated.Status)

	n, err := g.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGateway_BothBackendsDown(t *testing.T) {
	ctx := context.Background()
	g := NewGateway[models.Lead](downStore[models.Lead]{}, downStore[models.Lead]{}, zap.NewNop())

	_, err := g.Save(ctx, &models.Lead{Name: "Ann"})
	assert.ErrorIs(t, err, ErrUnavailable)

	recs, err := g.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)

	_, err = g.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGateway_MissingRecord(t *testing.T) {
	g := newFileOnlyLeads(t)

	_, err := g.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = g.Update(context.Background(), "nope", map[string]any{"notes": "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := g.Delete(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGateway_MissWithPrimaryDownIsUnavailable(t *testing.T) {
	g := NewGateway[models.Lead](downStore[models.Lead]{}, NewFileStore[models.Lead](t.TempDir(), 0), zap.NewNop())

	_, err := g.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGateway_ListMergesFallbackIntoPrimary(t *testing.T) {
	ctx := context.Background()
	primary := NewFileStore[models.Lead](t.TempDir(), 0)
	fallback := NewFileStore[models.Lead](t.TempDir(), 0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, primary.Save(ctx, newLead("p1", "old", base)))
	require.NoError(t, fallback.Save(ctx, newLead("f1", "offline", base.Add(time.Minute))))
	require.NoError(t, primary.Save(ctx, newLead("p2", "new", base.Add(2*time.Minute))))

	g := NewGateway[models.Lead](primary, fallback, zap.NewNop())
	recs, err := g.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"p2", "f1", "p1"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
}

func TestGateway_SyncMovesFallbackRecords(t *testing.T) {
	ctx := context.Background()
	primary := NewFileStore[models.Lead](t.TempDir(), 0)
	fallback := NewFileStore[models.Lead](t.TempDir(), 0)
	now := time.Now().UTC()
	require.NoError(t, fallback.Save(ctx, newLead("a", "Ann", now)))
	require.NoError(t, fallback.Save(ctx, newLead("b", "Ben", now.Add(time.Second))))

	g := NewGateway[models.Lead](primary, fallback, zap.NewNop())
	n, err := g.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := fallback.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, left)

	moved, err := primary.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, moved, 2)
}

func TestGateway_SyncWithoutPrimaryIsNoop(t *testing.T) {
	g := newFileOnlyLeads(t)
	_, err := g.Save(context.Background(), &models.Lead{Name: "Ann"})
	require.NoError(t, err)

	n, err := g.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStores_SyncAllFileOnly(t *testing.T) {
	stores := OpenStores(nil, t.TempDir(), 10, zap.NewNop())
	counts, err := stores.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, counts, 8)
}

func TestStores_SyncAllAttachesPrimaryOnceReachable(t *testing.T) {
	ctx := context.Background()
	stores := OpenStores(nil, t.TempDir(), 10, zap.NewNop())
	_, err := stores.Leads.Save(ctx, &models.Lead{Name: "Ann", Phone: "1", Service: "Roofing"})
	require.NoError(t, err)

	reachable := false
	stores.RetryPrimary(func() (*gorm.DB, error) {
		if !reachable {
			return nil, errDown
		}
		return dryRunDB(t), nil
	})

	counts, err := stores.SyncAll(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, counts[models.KindLead])
	assert.False(t, stores.Leads.HasPrimary())

	reachable = true
	counts, err = stores.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.KindLead])
	assert.True(t, stores.Leads.HasPrimary())
	assert.True(t, stores.SentMessages.HasPrimary())
}

func TestGateway_CountAddsPendingFallbackRecords(t *testing.T) {
	ctx := context.Background()
	primary := NewFileStore[models.Lead](t.TempDir(), 0)
	fallback := NewFileStore[models.Lead](t.TempDir(), 0)
	now := time.Now().UTC()
	require.NoError(t, primary.Save(ctx, newLead("p1", "Ann", now)))
	require.NoError(t, primary.Save(ctx, newLead("p2", "Ben", now)))
	require.NoError(t, fallback.Save(ctx, newLead("f1", "Cy", now)))

	g := NewGateway[models.Lead](primary, fallback, zap.NewNop())
	n, err := g.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = g.Count(ctx, Filter{"name": "Cy"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	down := NewGateway[models.Lead](downStore[models.Lead]{}, fallback, zap.NewNop())
	n, err = down.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
