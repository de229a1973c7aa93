package kvstore

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract exercises behaviour every backend must share.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("GetMissing", func(t *testing.T) {
		r := newRepo(t)
		v, err := r.Get(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "k1", []byte(`{"a":1}`)))
		v, err := r.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), v)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "k", []byte("one")))
		require.NoError(t, r.Set(ctx, "k", []byte("two")))
		v, err := r.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), v)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "k", []byte("x")))
		require.NoError(t, r.Delete(ctx, "k"))
		require.NoError(t, r.Delete(ctx, "k"))

		v, err := r.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("UpdateSeesCurrentValue", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		var seen []byte
		require.NoError(t, r.Update(ctx, "k", func(cur []byte) ([]byte, error) {
			seen = cur
			return []byte("first"), nil
		}))
		assert.Nil(t, seen)

		require.NoError(t, r.Update(ctx, "k", func(cur []byte) ([]byte, error) {
			seen = cur
			return append(cur, "+second"...), nil
		}))
		assert.Equal(t, []byte("first"), seen)

		v, err := r.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("first+second"), v)
	})

	t.Run("UpdateNilDeletes", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "k", []byte("x")))
		require.NoError(t, r.Update(ctx, "k", func([]byte) ([]byte, error) { return nil, nil }))

		v, err := r.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("UpdateErrorLeavesValue", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		boom := errors.New("boom")

		require.NoError(t, r.Set(ctx, "k", []byte("keep")))
		err := r.Update(ctx, "k", func([]byte) ([]byte, error) { return []byte("lost"), boom })
		require.ErrorIs(t, err, boom)

		v, err := r.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("keep"), v)
	})

	t.Run("ConcurrentUpdatesDoNotLoseWrites", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		const n = 20

		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := r.Update(ctx, "counter", func(cur []byte) ([]byte, error) {
					i := 0
					if cur != nil {
						var err error
						if i, err = strconv.Atoi(string(cur)); err != nil {
							return nil, err
						}
					}
					return []byte(strconv.Itoa(i + 1)), nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		v, err := r.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(n), string(v))
	})
}
