package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnilead-server/database"
	"omnilead-server/models"
)

func TestAnalytics_Report(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)

	saveLead := func(at time.Time, status models.LeadStatus) {
		l := &models.Lead{Name: "n", Phone: "p", Service: "s", Status: status}
		l.CreatedAt = at
		_, err := stores.Leads.Save(ctx, l)
		require.NoError(t, err)
	}
	saveLead(now, models.LeadStatusNew)
	saveLead(now.Add(-time.Hour), models.LeadStatusWon)
	saveLead(now.AddDate(0, 0, -6), models.LeadStatusNew)
	saveLead(now.AddDate(0, 0, -30), models.LeadStatusLost)

	c := &models.Contractor{Verified: true}
	c.CreatedAt = now.AddDate(0, 0, -1)
	_, err := stores.Contractors.Save(ctx, c)
	require.NoError(t, err)

	_, err = stores.Reviews.Save(ctx, &models.Review{Rating: 4, Status: models.ReviewPending})
	require.NoError(t, err)

	a := NewAnalytics(stores.Contractors, stores.Leads, stores.Reviews, stores.Messages)
	a.now = func() time.Time { return now }

	r, err := a.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Contractors: 1, VerifiedContractors: 1, Leads: 4, Reviews: 1, PendingReviews: 1}, r.Totals)
	assert.Equal(t, map[string]int{"new": 2, "won": 1, "lost": 1}, r.ByStatus)

	require.Len(t, r.Series, 7)
	assert.Equal(t, "2026-06-04", r.Series[0].Date)
	assert.Equal(t, "2026-06-10", r.Series[6].Date)
	assert.Equal(t, 1, r.Series[0].Leads)
	assert.Equal(t, 2, r.Series[6].Leads)
	assert.Equal(t, 1, r.Series[5].Contractors)
}

// bigLeadRepo reports more leads than any list would return.
type bigLeadRepo struct {
	database.Repository[models.Lead]
}

func (bigLeadRepo) Count(context.Context, database.Filter) (int64, error) { return 5000, nil }

func TestAnalytics_TotalsUseCounts(t *testing.T) {
	stores := newTestStores(t)
	a := NewAnalytics(stores.Contractors, bigLeadRepo{stores.Leads}, stores.Reviews, stores.Messages)

	r, err := a.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000, r.Totals.Leads)
	assert.Equal(t, 5000, r.ByStatus["new"])
	assert.Zero(t, r.Series[6].Leads)
}
