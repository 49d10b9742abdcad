package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"omnilead-server/database"
	"omnilead-server/models"
)

// Totals counts records per kind.
type Totals struct {
	Contractors         int `json:"contractors"`
	VerifiedContractors int `json:"verified_contractors"`
	Leads               int `json:"leads"`
	Reviews             int `json:"reviews"`
	PendingReviews      int `json:"pending_reviews"`
	Messages            int `json:"messages"`
}

// DayCount is one point of a daily series.
type DayCount struct {
	Date        string `json:"date"`
	Leads       int    `json:"leads"`
	Contractors int    `json:"contractors"`
}

// Report is the admin dashboard summary.
type Report struct {
	Totals   Totals         `json:"totals"`
	Series   []DayCount     `json:"series"`
	ByStatus map[string]int `json:"leads_by_status"`
}

// Analytics summarizes the stores for the admin dashboard.
type Analytics struct {
	contractors database.Repository[models.Contractor]
	leads       database.Repository[models.Lead]
	reviews     database.Repository[models.Review]
	messages    database.Repository[models.Message]
	days        int
	now         func() time.Time
}

func NewAnalytics(contractors database.Repository[models.Contractor], leads database.Repository[models.Lead], reviews database.Repository[models.Review], messages database.Repository[models.Message]) *Analytics {
	return &Analytics{
		contractors: contractors,
		leads:       leads,
		reviews:     reviews,
		messages:    messages,
		days:        7,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Report builds totals and a daily series covering the last seven days,
// today included, oldest first. Totals come from count queries so they are
// not limited by the list history cap.
func (a *Analytics) Report(ctx context.Context) (*Report, error) {
	statuses := []models.LeadStatus{models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusWon, models.LeadStatusLost}
	var (
		totals   [6]int64
		byStatus = make([]int64, len(statuses))
		leads    []models.Lead
		recent   []models.Contractor
	)

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, n func(context.Context) (int64, error)) {
		g.Go(func() (err error) { *dst, err = n(gctx); return })
	}
	count(&totals[0], func(ctx context.Context) (int64, error) { return a.contractors.Count(ctx, nil) })
	count(&totals[1], func(ctx context.Context) (int64, error) {
		return a.contractors.Count(ctx, database.Filter{"verified": true})
	})
	count(&totals[2], func(ctx context.Context) (int64, error) { return a.leads.Count(ctx, nil) })
	count(&totals[3], func(ctx context.Context) (int64, error) { return a.reviews.Count(ctx, nil) })
	count(&totals[4], func(ctx context.Context) (int64, error) {
		return a.reviews.Count(ctx, database.Filter{"status": string(models.ReviewPending)})
	})
	count(&totals[5], func(ctx context.Context) (int64, error) { return a.messages.Count(ctx, nil) })
	for i, st := range statuses {
		status := string(st)
		count(&byStatus[i], func(ctx context.Context) (int64, error) {
			return a.leads.Count(ctx, database.Filter{"status": status})
		})
	}
	g.Go(func() (err error) { leads, err = a.leads.List(gctx, nil); return })
	g.Go(func() (err error) { recent, err = a.contractors.List(gctx, nil); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Report{
		Totals: Totals{
			Contractors:         int(totals[0]),
			VerifiedContractors: int(totals[1]),
			Leads:               int(totals[2]),
			Reviews:             int(totals[3]),
			PendingReviews:      int(totals[4]),
			Messages:            int(totals[5]),
		},
		ByStatus: map[string]int{},
	}
	for i, st := range statuses {
		if byStatus[i] > 0 {
			r.ByStatus[string(st)] = int(byStatus[i])
		}
	}

	// The series only needs the newest records, which the capped lists hold.
	today := a.now().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(a.days - 1))
	index := make(map[string]int, a.days)
	r.Series = make([]DayCount, a.days)
	for i := range r.Series {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		r.Series[i].Date = day
		index[day] = i
	}
	for _, l := range leads {
		if i, ok := index[l.CreatedAt.UTC().Format("2006-01-02")]; ok {
			r.Series[i].Leads++
		}
	}
	for _, c := range recent {
		if i, ok := index[c.CreatedAt.UTC().Format("2006-01-02")]; ok {
			r.Series[i].Contractors++
		}
	}
	return r, nil
}
