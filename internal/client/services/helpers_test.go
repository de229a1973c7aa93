package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/client/repositories/kvstore"
	"github.com/dmitrijs2005/contactbook/internal/client/storage"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/metrics"
)

var errDiskFull = errors.New("disk full")

// flakyRepo fails every write while failWrites is set.
type flakyRepo struct {
	*kvstore.MemoryRepository
	failWrites atomic.Bool
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{MemoryRepository: kvstore.NewMemoryRepository()}
}

func (f *flakyRepo) Set(ctx context.Context, key string, v []byte) error {
	if f.failWrites.Load() {
		return errDiskFull
	}
	return f.MemoryRepository.Set(ctx, key, v)
}

func (f *flakyRepo) Delete(ctx context.Context, key string) error {
	if f.failWrites.Load() {
		return errDiskFull
	}
	return f.MemoryRepository.Delete(ctx, key)
}

func (f *flakyRepo) Update(ctx context.Context, key string, fn kvstore.UpdateFunc) error {
	if f.failWrites.Load() {
		return errDiskFull
	}
	return f.MemoryRepository.Update(ctx, key, fn)
}

// seqIDs hands out predictable ids.
func seqIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

// gateSleeper blocks every Sleep until release is closed.
type gateSleeper struct {
	entered chan struct{}
	release chan struct{}
}

func newGateSleeper() *gateSleeper {
	return &gateSleeper{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gateSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fixture struct {
	repo     *flakyRepo
	store    *storage.Store
	metrics  *metrics.Recorder
	auth     AuthService
	contacts ContactService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, newFlakyRepo(), Options{})
}

func newFixtureOn(t *testing.T, repo *flakyRepo, opts Options) *fixture {
	t.Helper()
	m := metrics.NewRecorder()
	st := storage.NewStore(repo, logging.Nop{}, m)
	if opts.Metrics == nil {
		opts.Metrics = m
	}
	ctx := context.Background()
	auth := NewAuthService(ctx, st, opts)
	return &fixture{
		repo:     repo,
		store:    st,
		metrics:  opts.Metrics,
		auth:     auth,
		contacts: NewContactService(ctx, st, auth, opts),
	}
}
