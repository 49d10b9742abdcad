package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"omnilead-server/database"
	"omnilead-server/models"
	"omnilead-server/types"
)

type directoryFixture struct {
	dir      *Directory
	stores   *database.Stores
	sessions *JWTService
	notifier *recordingNotifier
}

func newDirectoryFixture(t *testing.T) *directoryFixture {
	t.Helper()
	stores := newTestStores(t)
	sessions := NewJWTService("test-secret", time.Hour)
	notifier := &recordingNotifier{}
	return &directoryFixture{
		dir:      NewDirectory(stores.Contractors, sessions, notifier, testChannels, nil, zap.NewNop()),
		stores:   stores,
		sessions: sessions,
		notifier: notifier,
	}
}

func TestDirectory_RegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{name: "no contact", in: RegisterInput{Password: "pw"}, field: "email_or_phone"},
		{name: "no password", in: RegisterInput{Email: "a@b.co"}, field: "password"},
		{name: "short pin", in: RegisterInput{Email: "a@b.co", Password: "pw", Pin: "12"}, field: "pin"},
		{name: "alpha pin", in: RegisterInput{Email: "a@b.co", Password: "pw", Pin: "1a3"}, field: "pin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDirectoryFixture(t)
			_, err := f.dir.Register(context.Background(), tt.in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Empty(t, f.notifier.Calls())
		})
	}
}

func TestDirectory_RegisterHashesSecrets(t *testing.T) {
	f := newDirectoryFixture(t)

	c, err := f.dir.Register(context.Background(), RegisterInput{
		Name: "Sam", Email: "Sam@Example.com", Password: "hunter2", Pin: "123", Service: "Plumbing",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Sam", c.Company)
	assert.Equal(t, "sam@example.com", c.Email)
	assert.Equal(t, models.BadgeNone, c.Badge)
	assert.Empty(t, c.PasswordHash)
	assert.Empty(t, c.PinHash)

	stored, err := f.stores.Contractors.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "hunter2", stored.PasswordHash)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PinHash), []byte("123")))

	calls := f.notifier.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].text, "<b>🧰 New Contractor Signup</b>"))
	assert.NotNil(t, calls[0].targets.Admin)
}

func TestDirectory_RegisterWelcomesContractorWithBot(t *testing.T) {
	f := newDirectoryFixture(t)
	_, err := f.dir.Register(context.Background(), RegisterInput{
		Company: "Acme", Phone: "555", Password: "pw", TelegramToken: "t", TelegramChatID: "1",
	})
	require.NoError(t, err)

	calls := f.notifier.Calls()
	require.Len(t, calls, 2)
	require.NotNil(t, calls[1].targets.Contractor)
	assert.Contains(t, calls[1].text, "Welcome Acme")
}

func TestDirectory_RegisterConflicts(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()
	_, err := f.dir.Register(ctx, RegisterInput{ID: "c-1", Email: "a@b.co", Phone: "555 0101", Password: "pw"})
	require.NoError(t, err)

	for _, in := range []RegisterInput{
		{Email: "A@B.CO", Password: "pw"},
		{Phone: "5550101", Password: "pw"},
		{ID: "c-1", Email: "other@b.co", Password: "pw"},
	} {
		_, err := f.dir.Register(ctx, in)
		assert.ErrorIs(t, err, ErrConflict)
	}
}

func TestDirectory_Login(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()
	reg, err := f.dir.Register(ctx, RegisterInput{Email: "pro@example.com", Phone: "555", Password: "pw", Pin: "042"})
	require.NoError(t, err)

	res, err := f.dir.Login(ctx, LoginInput{Email: "PRO@example.com", Password: "pw", Pin: "042"})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, res.Contractor.ID)
	assert.Empty(t, res.Contractor.PasswordHash)

	claims, err := f.sessions.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleContractor, claims.Role)
	assert.Equal(t, reg.ID, claims.Subject)

	_, err = f.dir.Login(ctx, LoginInput{Phone: "555", Password: "pw", Pin: "042"})
	assert.NoError(t, err)

	for _, in := range []LoginInput{
		{Email: "pro@example.com", Password: "wrong", Pin: "042"},
		{Email: "pro@example.com", Password: "pw"},
		{Email: "pro@example.com", Password: "pw", Pin: "000"},
		{Email: "nobody@example.com", Password: "pw"},
	} {
		_, err := f.dir.Login(ctx, in)
		assert.ErrorIs(t, err, ErrUnauthorized, "%+v", in)
	}
}

func TestDirectory_LoginWithoutPin(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()
	_, err := f.dir.Register(ctx, RegisterInput{Email: "a@b.co", Password: "pw"})
	require.NoError(t, err)

	_, err = f.dir.Login(ctx, LoginInput{Email: "a@b.co", Password: "pw"})
	assert.NoError(t, err)
}

func TestDirectory_LoginBlocked(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()
	c, err := f.dir.Register(ctx, RegisterInput{Email: "a@b.co", Password: "pw"})
	require.NoError(t, err)

	blocked, err := f.dir.SetBlocked(ctx, c.ID, true)
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)

	_, err = f.dir.Login(ctx, LoginInput{Email: "a@b.co", Password: "pw"})
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestDirectory_FindByID(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()

	c, err := f.dir.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = f.dir.FindByID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, c)

	reg, err := f.dir.Register(ctx, RegisterInput{Phone: "1", Password: "pw"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		c, err = f.dir.FindByID(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, reg.ID, c.ID)
	}
}

func TestDirectory_Moderation(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()
	reg, err := f.dir.Register(ctx, RegisterInput{Phone: "1", Password: "pw"})
	require.NoError(t, err)

	c, err := f.dir.SetVerification(ctx, reg.ID, true)
	require.NoError(t, err)
	assert.True(t, c.Verified)
	assert.Empty(t, c.PasswordHash)

	c, err = f.dir.SetBadge(ctx, reg.ID, "Gold")
	require.NoError(t, err)
	assert.Equal(t, models.BadgeGold, c.Badge)

	_, err = f.dir.SetBadge(ctx, reg.ID, "bronze")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.dir.SetVerification(ctx, "missing", true)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestDirectory_UpdateProfile(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()
	a, err := f.dir.Register(ctx, RegisterInput{Phone: "111", Password: "pw"})
	require.NoError(t, err)
	_, err = f.dir.Register(ctx, RegisterInput{Phone: "222", Password: "pw"})
	require.NoError(t, err)

	company, chat := "New Co", "77"
	c, err := f.dir.UpdateProfile(ctx, a.ID, ProfileInput{Company: &company, TelegramChatID: &chat})
	require.NoError(t, err)
	assert.Equal(t, "New Co", c.Company)
	assert.Equal(t, "77", c.TelegramChatID)
	assert.Equal(t, "111", c.Phone)

	taken := "222"
	_, err = f.dir.UpdateProfile(ctx, a.ID, ProfileInput{Phone: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.dir.UpdateProfile(ctx, a.ID, ProfileInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDirectory_RemoveAndList(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx := context.Background()
	reg, err := f.dir.Register(ctx, RegisterInput{Phone: "1", Password: "pw"})
	require.NoError(t, err)

	list, err := f.dir.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].PasswordHash)

	n, err := f.dir.Remove(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	c, err := f.dir.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = f.dir.Remove(ctx, reg.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
