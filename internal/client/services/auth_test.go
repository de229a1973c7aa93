package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/contactbook/internal/client/models"
	"github.com/dmitrijs2005/contactbook/internal/client/storage"
	"github.com/dmitrijs2005/contactbook/internal/clock"
)

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	sess, err := f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.Session{UserID: u.ID, Email: "a@x.com"}, sess)
	assert.True(t, f.auth.IsAuthed())

	st := f.auth.State()
	require.NotNil(t, st.Session)
	assert.Equal(t, u.ID, st.Session.UserID)
	assert.Empty(t, st.Error)
	assert.False(t, st.Loading)
}

func TestRegister_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, "A@X.COM", "other12")
	require.ErrorIs(t, err, ErrDuplicateEmail)

	st := f.auth.State()
	assert.Len(t, st.Users, 1)
	assert.Equal(t, "email already registered", st.Error)
	assert.Len(t, storage.Get(ctx, f.store, storage.KeyUsers, []models.User{}), 1)
}

func TestRegister_AppendsInOrder(t *testing.T) {
	f := newFixtureOn(t, newFlakyRepo(), Options{NewID: seqIDs("u")})
	ctx := context.Background()

	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := f.auth.Register(ctx, e, "secret1")
		require.NoError(t, err)
	}

	users := storage.Get(ctx, f.store, storage.KeyUsers, []models.User{})
	assert.Equal(t, []models.User{
		{ID: "u-1", Email: "a@x.com", Password: "secret1"},
		{ID: "u-2", Email: "b@x.com", Password: "secret1"},
		{ID: "u-3", Email: "c@x.com", Password: "secret1"},
	}, users)
}

func TestRegister_DuplicateFromAnotherInstance(t *testing.T) {
	repo := newFlakyRepo()
	first := newFixtureOn(t, repo, Options{})
	second := newFixtureOn(t, repo, Options{})
	ctx := context.Background()

	_, err := first.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	// second loaded before the registration and only learns about it from storage.
	_, err = second.auth.Register(ctx, "a@x.com", "secret1")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "a@x.com", "Secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, f.auth.IsAuthed())
	assert.Equal(t, "invalid email or password", f.auth.State().Error)
	assert.Nil(t, storage.Get[*models.Session](ctx, f.store, storage.KeySession, nil))
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), "nobody@x.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_EmailCaseInsensitiveSessionKeepsStoredEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "Alice@X.com", "secret1")
	require.NoError(t, err)

	sess, err := f.auth.Login(ctx, "alice@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Alice@X.com", sess.Email)
}

func TestLogin_ErrorClearedBySuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, "a@x.com", "nope")
	require.Error(t, err)
	require.NotEmpty(t, f.auth.State().Error)

	_, err = f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Empty(t, f.auth.State().Error)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	f.auth.Logout(ctx)

	assert.False(t, f.auth.IsAuthed())
	assert.Nil(t, f.auth.State().Session)
	assert.Nil(t, storage.Get[*models.Session](ctx, f.store, storage.KeySession, nil))
}

func TestSessionSurvivesRestart(t *testing.T) {
	repo := newFlakyRepo()
	ctx := context.Background()

	first := newFixtureOn(t, repo, Options{})
	u, err := first.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = first.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	second := newFixtureOn(t, repo, Options{})
	sess, ok := second.auth.Session()
	require.True(t, ok)
	assert.Equal(t, u.ID, sess.UserID)
	assert.Len(t, second.auth.State().Users, 1)
}

func TestRegister_WriteFailureKeepsUserInMemory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.failWrites.Store(true)

	_, err := f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, f.auth.State().Users, 1)
	assert.Empty(t, storage.Get(ctx, f.store, storage.KeyUsers, []models.User{}))

	// Login also sees users that only exist in memory.
	_, err = f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.True(t, f.auth.IsAuthed())

	f.auth.Logout(ctx)
	assert.False(t, f.auth.IsAuthed())

	_, err = f.auth.Register(ctx, "A@x.com", "secret1")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func emails(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Email)
	}
	return out
}

func TestLogin_UnsavedUserAlongsideStoredOnes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "b@x.com", "secret1")
	require.NoError(t, err)

	f.repo.failWrites.Store(true)
	_, err = f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	sess, err := f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sess.Email)
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, emails(f.auth.State().Users))
}

func TestRegister_UnsavedUsersPersistOnNextWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "b@x.com", "secret1")
	require.NoError(t, err)

	f.repo.failWrites.Store(true)
	_, err = f.auth.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	f.repo.failWrites.Store(false)
	_, err = f.auth.Register(ctx, "c@x.com", "secret1")
	require.NoError(t, err)

	want := []string{"b@x.com", "a@x.com", "c@x.com"}
	assert.Equal(t, want, emails(f.auth.State().Users))
	assert.Equal(t, want, emails(storage.Get(ctx, f.store, storage.KeyUsers, []models.User{})))

	restarted := newFixtureOn(t, f.repo, Options{})
	_, err = restarted.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
}

func TestMergeUsers(t *testing.T) {
	stored := []models.User{{ID: "1", Email: "b@x.com"}, {ID: "2", Email: "c@x.com"}}
	local := []models.User{
		{ID: "1", Email: "b@x.com"},
		{ID: "3", Email: "a@x.com"},
		{ID: "4", Email: "C@x.com"},
	}

	got := mergeUsers(stored, local)
	assert.Equal(t, []string{"b@x.com", "c@x.com", "a@x.com"}, emails(got))
	assert.Len(t, stored, 2)
}

func TestRegister_CancelledDuringDelayChangesNothing(t *testing.T) {
	f := newFixtureOn(t, newFlakyRepo(), Options{Sleeper: clock.Real{}, Latency: DefaultLatency()})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.auth.Register(ctx, "a@x.com", "secret1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.auth.State().Users)
	assert.False(t, f.auth.State().Loading)
}

func TestAuth_LoadingWhilePending(t *testing.T) {
	gate := newGateSleeper()
	f := newFixtureOn(t, newFlakyRepo(), Options{Sleeper: gate})

	done := make(chan error, 1)
	go func() {
		_, err := f.auth.Register(context.Background(), "a@x.com", "secret1")
		done <- err
	}()

	<-gate.entered
	assert.True(t, f.auth.State().Loading)

	close(gate.release)
	require.NoError(t, <-done)
	assert.False(t, f.auth.State().Loading)
}

func TestAuth_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.auth.Register(ctx, "a@x.com", "secret1")
	_, _ = f.auth.Login(ctx, "a@x.com", "bad")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OpsTotal.WithLabelValues("auth", "register", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OpsTotal.WithLabelValues("auth", "login", "error")))
}
