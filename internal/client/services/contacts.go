package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/client/models"
	"github.com/dmitrijs2005/contactbook/internal/client/storage"
)

// ContactState is a copy of the contact store's state.
type ContactState struct {
	Data    models.ContactBook
	Loading bool
	Error   string
}

// ContactService manages the contacts of the logged-in user.
//
// The visible list always follows the session at call time. Every mutation
// rewrites the whole per-user map under storage.KeyContacts.
type ContactService interface {
	List() []models.Contact
	FindByID(id string) (models.Contact, bool)

	Create(ctx context.Context, in models.ContactInput) (models.Contact, error)
	Update(ctx context.Context, id string, patch models.ContactPatch) (models.Contact, error)
	Remove(ctx context.Context, id string) error

	State() ContactState
}

type contactService struct {
	store    *storage.Store
	sessions SessionProvider
	opts     Options

	opMu    sync.Mutex
	pending pending

	mu     sync.RWMutex
	data   models.ContactBook
	errMsg string

	// unsaved holds user ids whose in-memory list is newer than storage.
	unsaved map[string]struct{}
}

// NewContactService loads all contacts from store. sessions decides whose
// list is visible.
func NewContactService(ctx context.Context, store *storage.Store, sessions SessionProvider, opts Options) ContactService {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("store", "contacts")

	data := storage.Get(ctx, store, storage.KeyContacts, models.ContactBook{})
	if data == nil {
		data = models.ContactBook{}
	}
	return &contactService{
		store:    store,
		sessions: sessions,
		opts:     opts,
		data:     data,
		unsaved:  map[string]struct{}{},
	}
}

func (s *contactService) List() []models.Contact {
	sess, ok := s.sessions.Session()
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Contact(nil), s.data[sess.UserID]...)
}

func (s *contactService) FindByID(id string) (models.Contact, bool) {
	for _, c := range s.List() {
		if c.ID == id {
			return c, true
		}
	}
	return models.Contact{}, false
}

func (s *contactService) Create(ctx context.Context, in models.ContactInput) (c models.Contact, err error) {
	defer s.observe("create", time.Now(), &err)

	sess, ok := s.sessions.Session()
	if !ok {
		return models.Contact{}, ErrNoActiveSession
	}

	defer s.pending.begin()()
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.opts.Sleeper.Sleep(ctx, s.opts.Latency.Create); err != nil {
		return models.Contact{}, err
	}

	c = in.WithID(s.opts.NewID())
	err = s.commit(ctx, sess.UserID, func(b models.ContactBook) error {
		b[sess.UserID] = append([]models.Contact{c}, b[sess.UserID]...)
		return nil
	})
	if err != nil {
		return models.Contact{}, err
	}

	s.opts.Logger.Debug(ctx, "contact created", "user_id", sess.UserID, "contact_id", c.ID)
	return c, nil
}

func (s *contactService) Update(ctx context.Context, id string, patch models.ContactPatch) (c models.Contact, err error) {
	defer s.observe("update", time.Now(), &err)
	defer s.pending.begin()()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.opts.Sleeper.Sleep(ctx, s.opts.Latency.Update); err != nil {
		return models.Contact{}, err
	}

	sess, ok := s.sessions.Session()
	if !ok {
		s.fail(ErrContactNotFound)
		return models.Contact{}, ErrContactNotFound
	}

	err = s.commit(ctx, sess.UserID, func(b models.ContactBook) error {
		list := b[sess.UserID]
		for i := range list {
			if list[i].ID == id {
				list[i] = patch.Apply(list[i])
				c = list[i]
				return nil
			}
		}
		return ErrContactNotFound
	})
	if err != nil {
		return models.Contact{}, err
	}

	s.opts.Logger.Debug(ctx, "contact updated", "user_id", sess.UserID, "contact_id", id)
	return c, nil
}

// Remove deletes id from the active list. An unknown id is not an error.
func (s *contactService) Remove(ctx context.Context, id string) (err error) {
	defer s.observe("remove", time.Now(), &err)
	defer s.pending.begin()()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.opts.Sleeper.Sleep(ctx, s.opts.Latency.Remove); err != nil {
		return err
	}

	sess, ok := s.sessions.Session()
	if !ok {
		return nil
	}

	err = s.commit(ctx, sess.UserID, func(b models.ContactBook) error {
		list := b[sess.UserID]
		kept := make([]models.Contact, 0, len(list))
		for _, c := range list {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		b[sess.UserID] = kept
		return nil
	})
	if err != nil {
		return err
	}

	s.opts.Logger.Debug(ctx, "contact removed", "user_id", sess.UserID, "contact_id", id)
	return nil
}

func (s *contactService) State() ContactState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ContactState{
		Data:    s.data.Clone(),
		Loading: s.pending.active(),
		Error:   s.errMsg,
	}
}

// commit applies mutate to the persisted map and adopts the result. When
// the write fails the same change is applied to the in-memory copy only and
// uid's list is marked unsaved; unsaved lists replace the persisted ones on
// the next successful write. A mutate error is recorded in State().Error and
// returned.
func (s *contactService) commit(ctx context.Context, uid string, mutate func(models.ContactBook) error) error {
	apply := func(cur models.ContactBook) (models.ContactBook, error) {
		if cur == nil {
			cur = models.ContactBook{}
		}
		s.overlayUnsaved(cur)
		if err := mutate(cur); err != nil {
			return nil, err
		}
		return cur, nil
	}

	book, err := storage.Update(ctx, s.store, storage.KeyContacts, models.ContactBook{}, apply)
	persisted := err == nil
	if errors.Is(err, storage.ErrWriteFailure) {
		s.opts.Logger.Warn(ctx, "contacts not persisted, keeping them in memory", "err", err)
		book, err = apply(s.snapshot())
	}
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.data = book
	s.errMsg = ""
	if persisted {
		clear(s.unsaved)
	} else {
		s.unsaved[uid] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

func (s *contactService) overlayUnsaved(b models.ContactBook) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for uid := range s.unsaved {
		b[uid] = append(make([]models.Contact, 0, len(s.data[uid])), s.data[uid]...)
	}
}

func (s *contactService) snapshot() models.ContactBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

func (s *contactService) fail(err error) {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
}

func (s *contactService) observe(op string, started time.Time, err *error) {
	s.opts.Metrics.Observe("contacts", op, started, *err)
}
