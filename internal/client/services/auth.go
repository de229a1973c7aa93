// Package services holds the client's state containers: the session store
// (users and the current login) and the contact store.
//
// Each store keeps an in-memory snapshot loaded once at construction and
// persists every mutation through storage.Update, holding a per-store lock
// across the simulated delay and the read-modify-write so that concurrent
// calls never lose each other's changes.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/client/models"
	"github.com/dmitrijs2005/contactbook/internal/client/storage"
)

// AuthState is a copy of the session store's state.
type AuthState struct {
	Users   []models.User
	Session *models.Session
	Loading bool
	Error   string
}

// SessionProvider exposes the current session to other stores.
type SessionProvider interface {
	Session() (models.Session, bool)
}

// AuthService manages registered users and the active session.
//
// Contract:
//   - Register: append a new user; emails are unique case-insensitively.
//   - Login: match email case-insensitively and password exactly, then
//     persist the session.
//   - Logout: drop the session immediately, without delay.
//
// Register and Login honour ctx during the simulated delay; a cancelled
// call changes nothing.
type AuthService interface {
	SessionProvider

	Register(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (models.Session, error)
	Logout(ctx context.Context)

	State() AuthState
	IsAuthed() bool
}

type authService struct {
	store *storage.Store
	opts  Options

	// opMu serializes mutations.
	opMu    sync.Mutex
	pending pending

	mu      sync.RWMutex
	users   []models.User
	session *models.Session
	errMsg  string
}

// NewAuthService loads users and the saved session from store.
func NewAuthService(ctx context.Context, store *storage.Store, opts Options) AuthService {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("store", "auth")

	return &authService{
		store:   store,
		opts:    opts,
		users:   storage.Get(ctx, store, storage.KeyUsers, []models.User{}),
		session: storage.Get[*models.Session](ctx, store, storage.KeySession, nil),
	}
}

func (s *authService) Register(ctx context.Context, email, password string) (user models.User, err error) {
	defer s.observe("register", time.Now(), &err)
	defer s.pending.begin()()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.opts.Sleeper.Sleep(ctx, s.opts.Latency.Register); err != nil {
		return models.User{}, err
	}

	email = strings.TrimSpace(email)
	if _, dup := models.FindUserByEmail(s.snapshotUsers(), email); dup {
		s.fail(ErrDuplicateEmail)
		return models.User{}, ErrDuplicateEmail
	}

	user = models.User{ID: s.opts.NewID(), Email: email, Password: password}
	add := func(cur []models.User) ([]models.User, error) {
		cur = mergeUsers(cur, s.snapshotUsers())
		if _, dup := models.FindUserByEmail(cur, email); dup {
			return nil, ErrDuplicateEmail
		}
		return append(cur, user), nil
	}

	users, err := storage.Update(ctx, s.store, storage.KeyUsers, []models.User{}, add)
	if errors.Is(err, storage.ErrWriteFailure) {
		s.opts.Logger.Warn(ctx, "users not persisted, keeping them in memory", "err", err)
		users, err = add(s.snapshotUsers())
	}
	if err != nil {
		s.fail(err)
		return models.User{}, err
	}

	s.mu.Lock()
	s.users = users
	s.errMsg = ""
	s.mu.Unlock()

	s.opts.Logger.Debug(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (sess models.Session, err error) {
	defer s.observe("login", time.Now(), &err)
	defer s.pending.begin()()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.opts.Sleeper.Sleep(ctx, s.opts.Latency.Login); err != nil {
		return models.Session{}, err
	}

	// Pick up users registered by another process since start-up, keeping
	// the ones that only made it into memory.
	users := mergeUsers(storage.Get(ctx, s.store, storage.KeyUsers, []models.User{}), s.snapshotUsers())

	u, ok := models.FindUserByEmail(users, strings.TrimSpace(email))
	if !ok || u.Password != password {
		s.mu.Lock()
		s.users = users
		s.mu.Unlock()
		s.fail(ErrInvalidCredentials)
		return models.Session{}, ErrInvalidCredentials
	}

	sess = models.Session{UserID: u.ID, Email: u.Email}
	if err := s.store.Set(ctx, storage.KeySession, sess); err != nil {
		s.opts.Logger.Warn(ctx, "session not persisted, keeping it in memory", "err", err)
	}

	s.mu.Lock()
	s.users = users
	s.session = &sess
	s.errMsg = ""
	s.mu.Unlock()

	s.opts.Logger.Debug(ctx, "logged in", "user_id", u.ID)
	return sess, nil
}

func (s *authService) Logout(ctx context.Context) {
	defer s.observe("logout", time.Now(), nil)

	s.mu.Lock()
	s.session = nil
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.store.Remove(ctx, storage.KeySession); err != nil {
		s.opts.Logger.Warn(ctx, "session not removed from storage", "err", err)
	}
	s.opts.Logger.Debug(ctx, "logged out")
}

func (s *authService) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := AuthState{
		Users:   append([]models.User(nil), s.users...),
		Loading: s.pending.active(),
		Error:   s.errMsg,
	}
	if s.session != nil {
		cp := *s.session
		st.Session = &cp
	}
	return st
}

func (s *authService) Session() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return models.Session{}, false
	}
	return *s.session, true
}

func (s *authService) IsAuthed() bool {
	_, ok := s.Session()
	return ok
}

func (s *authService) snapshotUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.users...)
}

// mergeUsers returns persisted followed by the local users it lacks. A local
// user whose email was taken in storage meanwhile is dropped. Users are
// never deleted, so the union cannot bring anything back.
func mergeUsers(persisted, local []models.User) []models.User {
	out := append([]models.User(nil), persisted...)
	ids := make(map[string]struct{}, len(out))
	for _, u := range out {
		ids[u.ID] = struct{}{}
	}
	for _, u := range local {
		if _, ok := ids[u.ID]; ok {
			continue
		}
		if _, taken := models.FindUserByEmail(out, u.Email); taken {
			continue
		}
		ids[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (s *authService) fail(err error) {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
}

func (s *authService) observe(op string, started time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	s.opts.Metrics.Observe("auth", op, started, e)
}
