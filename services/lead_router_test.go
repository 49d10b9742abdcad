package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omnilead-server/database"
	"omnilead-server/models"
)

type routerFixture struct {
	router   *LeadRouter
	stores   *database.Stores
	notifier *recordingNotifier
	events   *recordingPublisher
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	stores := newTestStores(t)
	notifier := &recordingNotifier{}
	events := &recordingPublisher{}
	dir := NewDirectory(stores.Contractors, NewJWTService("s", time.Hour), notifier, testChannels, nil, zap.NewNop())
	router := NewLeadRouter(stores.Leads, stores.Blocks, dir, notifier, testChannels, events, zap.NewNop())
	router.now = func() time.Time { return time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC) }
	return &routerFixture{router: router, stores: stores, notifier: notifier, events: events}
}

func (f *routerFixture) addContractor(t *testing.T, id, token, chatID string) {
	t.Helper()
	c := &models.Contractor{Company: "Acme " + id, TelegramToken: token, TelegramChatID: chatID}
	c.ID = id
	_, err := f.stores.Contractors.Save(context.Background(), c)
	require.NoError(t, err)
}

func TestLeadRouter_SubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		in     LeadInput
		fields []string
	}{
		{name: "empty", in: LeadInput{}, fields: []string{"name", "phone", "service"}},
		{name: "blank name", in: LeadInput{Name: "  ", Phone: "1", Service: "Plumbing"}, fields: []string{"name"}},
		{name: "missing service", in: LeadInput{Name: "Ann", Phone: "1"}, fields: []string{"service"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			_, err := f.router.Submit(context.Background(), tt.in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)

			leads, err := f.stores.Leads.List(context.Background(), nil)
			require.NoError(t, err)
			assert.Empty(t, leads)
			assert.Empty(t, f.notifier.Calls())
			assert.Empty(t, f.events.Events())
		})
	}
}

func TestLeadRouter_SubmitPersistsAndNotifiesAdmin(t *testing.T) {
	f := newRouterFixture(t)

	res, err := f.router.Submit(context.Background(), LeadInput{
		Name: "Ann", Phone: "0821234567", Service: "Plumbing", Message: "Leaking tap",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Lead)
	assert.NotEmpty(t, res.Lead.ID)
	assert.Equal(t, models.SourceWeb, res.Lead.Source)
	assert.Equal(t, models.LeadStatusNew, res.Lead.Status)
	assert.True(t, res.Results[TargetAdmin].OK)
	assert.NotContains(t, res.Results, TargetContractor)

	stored, err := f.stores.Leads.Get(context.Background(), res.Lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leaking tap", stored.Message)

	calls := f.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].targets.Contractor)
	assert.Equal(t, []string{EventLeadCreated}, f.events.Events())
}

func TestLeadRouter_SubmitChatSource(t *testing.T) {
	f := newRouterFixture(t)
	res, err := f.router.Submit(context.Background(), LeadInput{Name: "A", Phone: "1", Service: "S", Source: "CHAT"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceChat, res.Lead.Source)

	res, err = f.router.Submit(context.Background(), LeadInput{Name: "A", Phone: "2", Service: "S", Source: "fax"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceWeb, res.Lead.Source)
}

func TestLeadRouter_SubmitRoutesToContractor(t *testing.T) {
	f := newRouterFixture(t)
	f.addContractor(t, "c-1", "ctok", "555")

	res, err := f.router.Submit(context.Background(), LeadInput{Name: "Ann", Phone: "1", Service: "Roofing", ContractorID: "c-1"})
	require.NoError(t, err)
	assert.True(t, res.Results[TargetContractor].OK)

	calls := f.notifier.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].targets.Contractor)
	assert.Equal(t, Credential{Token: "ctok", ChatID: "555"}, *calls[0].targets.Contractor)
	assert.Equal(t, "c-1", res.Lead.ContractorID)
}

func TestLeadRouter_SubmitIgnoresUnknownOrSilentContractor(t *testing.T) {
	f := newRouterFixture(t)
	f.addContractor(t, "quiet", "", "")

	for _, id := range []string{"missing", "quiet"} {
		res, err := f.router.Submit(context.Background(), LeadInput{Name: "Ann", Phone: "1", Service: "Roofing", ContractorID: id})
		require.NoError(t, err)
		assert.NotContains(t, res.Results, TargetContractor)
		assert.Equal(t, id, res.Lead.ContractorID)
	}
}

func TestLeadRouter_SubmitIncludesOverride(t *testing.T) {
	f := newRouterFixture(t)
	f.router.channels.Override = Credential{Token: "o", ChatID: "9"}

	res, err := f.router.Submit(context.Background(), LeadInput{Name: "Ann", Phone: "1", Service: "Roofing"})
	require.NoError(t, err)
	assert.True(t, res.Results[TargetAdminOverride].OK)
}

func TestLeadRouter_SubmitBlocked(t *testing.T) {
	f := newRouterFixture(t)
	_, err := f.router.Block(context.Background(), "082 123 4567", "", "spam")
	require.NoError(t, err)

	_, err = f.router.Submit(context.Background(), LeadInput{Name: "Spam", Phone: "0821234567", Service: "S"})
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = f.router.Block(context.Background(), "", "Bad@Example.com", "")
	require.NoError(t, err)
	_, err = f.router.Submit(context.Background(), LeadInput{Name: "X", Phone: "999", Email: "bad@example.com ", Service: "S"})
	assert.ErrorIs(t, err, ErrBlocked)

	leads, err := f.stores.Leads.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.Empty(t, f.notifier.Calls())
}

func TestLeadRouter_BlockRequiresPhoneOrEmail(t *testing.T) {
	f := newRouterFixture(t)
	_, err := f.router.Block(context.Background(), " ", "", "x")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFormatLead(t *testing.T) {
	lead := &models.Lead{Name: "Ann <script>", Phone: "1", Service: "Plumbing", Email: "a@b.co"}
	lead.CreatedAt = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	text := FormatLead(headerNewLead, lead)
	lines := strings.Split(text, "\n")
	assert.Equal(t, []string{
		"<b>📩 New Lead</b>",
		"👤 Name: Ann &lt;script&gt;",
		"📞 Phone: 1",
		"🛠 Service: Plumbing",
		"📧 Email: a@b.co",
		"⏱ 2026-05-04 10:30 UTC",
	}, lines)
}

func TestFormatLead_FieldOrder(t *testing.T) {
	lead := &models.Lead{Name: "N", Phone: "P", Service: "S", Message: "M", Email: "E"}
	text := FormatLead(headerNewLead, lead)

	idx := func(s string) int { return strings.Index(text, s) }
	assert.Less(t, idx("Name: N"), idx("Phone: P"))
	assert.Less(t, idx("Phone: P"), idx("Service: S"))
	assert.Less(t, idx("Service: S"), idx("Message: M"))
	assert.Less(t, idx("Message: M"), idx("Email: E"))
	assert.Less(t, idx("Email: E"), idx("⏱"))
}

func TestLeadRouter_Reassign(t *testing.T) {
	f := newRouterFixture(t)
	f.addContractor(t, "c-2", "tok2", "22")
	res, err := f.router.Submit(context.Background(), LeadInput{Name: "Ann", Phone: "1", Service: "Roofing"})
	require.NoError(t, err)

	status, notes, contractor := "contacted", "left voicemail", "c-2"
	updated, err := f.router.Reassign(context.Background(), res.Lead.ID, LeadUpdate{
		Status: &status, Notes: &notes, ContractorID: &contractor,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusContacted, updated.Status)
	assert.Equal(t, "left voicemail", updated.Notes)
	assert.Equal(t, "c-2", updated.ContractorID)

	calls := f.notifier.Calls()
	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[1].text, headerLeadAssigned))
	require.NotNil(t, calls[1].targets.Contractor)
	assert.Nil(t, calls[1].targets.Admin)
	assert.Contains(t, f.events.Events(), EventLeadUpdated)

	// same contractor again: no second notification
	_, err = f.router.Reassign(context.Background(), res.Lead.ID, LeadUpdate{ContractorID: &contractor})
	require.NoError(t, err)
	assert.Len(t, f.notifier.Calls(), 2)
}

func TestLeadRouter_ReassignErrors(t *testing.T) {
	f := newRouterFixture(t)
	bad := "archived"

	_, err := f.router.Reassign(context.Background(), "x", LeadUpdate{Status: &bad})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.router.Reassign(context.Background(), "x", LeadUpdate{})
	assert.ErrorAs(t, err, &verr)

	ok := "won"
	_, err = f.router.Reassign(context.Background(), "missing", LeadUpdate{Status: &ok})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestLeadRouter_Remove(t *testing.T) {
	f := newRouterFixture(t)
	res, err := f.router.Submit(context.Background(), LeadInput{Name: "Ann", Phone: "1", Service: "Roofing"})
	require.NoError(t, err)

	n, err := f.router.Remove(context.Background(), res.Lead.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.router.Remove(context.Background(), res.Lead.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
