package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectdash/internal/cache"
)

type recorder struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recorder) Failure(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, msg)
}

type apiError struct{ msg string }

func (e *apiError) Error() string       { return "api: " + e.msg }
func (e *apiError) UserMessage() string { return e.msg }

type item struct {
	Ref  Ref
	Name string
}

func addItem(remote func(ctx context.Context, name string) (string, error)) Mutation[string, string] {
	return Mutation[string, string]{
		Name: "add item",
		Keys: func(string) []string { return []string{"items"} },
		Apply: func(tx *cache.Txn, name string) {
			list, _ := cache.Lookup[[]item](tx, "items")
			next := append([]item{{Ref: NewPending(), Name: name}}, list...)
			tx.Set("items", next)
		},
		Remote: remote,
		Reconcile: func(tx *cache.Txn, name string, id string) {
			list, _ := cache.Lookup[[]item](tx, "items")
			next := make([]item, len(list))
			for i, it := range list {
				if it.Ref.IsPending() && it.Name == name {
					it.Ref, _ = it.Ref.Commit(id)
				}
				next[i] = it
			}
			tx.Set("items", next)
		},
		Invalidate: func(string, string) []string { return []string{"items"} },
		Success:    "Item added",
	}
}

func TestRunSuccessReconcilesAndInvalidates(t *testing.T) {
	c := cache.New()
	c.Set("items", []item{{Ref: Committed("a"), Name: "first"}})
	rec := &recorder{}
	coord := NewCoordinator(c, rec, nil)

	var seen []item
	id, err := Run(context.Background(), coord, addItem(func(ctx context.Context, name string) (string, error) {
		seen, _ = cache.Get[[]item](c, "items")
		return "b", nil
	}), "second")
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Ref.IsPending())
	assert.True(t, IsTempID(seen[0].Ref.ID()))

	items, ok := cache.Get[[]item](c, "items")
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, Committed("b"), items[0].Ref)
	assert.True(t, c.IsStale("items"))
	assert.Equal(t, []string{"Item added"}, rec.successes)
	assert.Empty(t, rec.failures)
}

func TestRunFailureRestoresExactly(t *testing.T) {
	c := cache.New()
	original := []item{{Ref: Committed("a"), Name: "first"}}
	c.Set("items", original)
	before := c.Snapshot("")
	rec := &recorder{}
	coord := NewCoordinator(c, rec, nil)

	_, err := Run(context.Background(), coord, addItem(func(context.Context, string) (string, error) {
		return "", &apiError{msg: "A client with this email already exists"}
	}), "second")
	require.Error(t, err)

	assert.Equal(t, before.Entries(), c.Snapshot("").Entries())
	assert.False(t, c.IsStale("items"))
	assert.Equal(t, []string{"A client with this email already exists"}, rec.failures)
	assert.Empty(t, rec.successes)
}

func TestRunFailureRemovesKeysCreatedOptimistically(t *testing.T) {
	c := cache.New()
	coord := NewCoordinator(c, &recorder{}, nil)

	m := Mutation[string, struct{}]{
		Keys: func(string) []string { return []string{"clients"} },
		Apply: func(tx *cache.Txn, id string) {
			tx.Set(cache.Key("clients", id), "optimistic")
		},
		Remote: func(context.Context, string) (struct{}, error) {
			return struct{}{}, errors.New("boom")
		},
	}
	_, err := Run(context.Background(), coord, m, "temp-1")
	require.Error(t, err)
	_, ok := c.Get("clients/temp-1")
	assert.False(t, ok)
}

func TestRunFailureFallsBackToGenericMessage(t *testing.T) {
	rec := &recorder{}
	coord := NewCoordinator(cache.New(), rec, nil)
	_, err := Run(context.Background(), coord, addItem(func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}), "x")
	require.Error(t, err)
	assert.Equal(t, []string{FallbackMessage}, rec.failures)
}

func TestRunCancelsInFlightFetch(t *testing.T) {
	c := cache.New()
	coord := NewCoordinator(c, &recorder{}, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	fetched := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), "items", func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return []item{{Ref: Committed("server"), Name: "stale"}}, nil
		})
		fetched <- err
	}()
	<-started

	_, err := Run(context.Background(), coord, addItem(func(context.Context, string) (string, error) {
		return "b", nil
	}), "fresh")
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-fetched)

	items, ok := cache.Get[[]item](c, "items")
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Name)
}

type heldRemote struct {
	entered chan struct{}
	release chan error
}

func hold(id string) (heldRemote, func(context.Context, string) (string, error)) {
	h := heldRemote{entered: make(chan struct{}), release: make(chan error)}
	return h, func(context.Context, string) (string, error) {
		close(h.entered)
		if err := <-h.release; err != nil {
			return "", err
		}
		return id, nil
	}
}

func names(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
		if it.Ref.IsPending() {
			out[i] += "*"
		}
	}
	return out
}

func TestRunOutOfOrderCompletions(t *testing.T) {
	t.Run("both succeed", func(t *testing.T) {
		c := cache.New()
		c.Set("items", []item{{Ref: Committed("a"), Name: "first"}})
		rec := &recorder{}
		coord := NewCoordinator(c, rec, nil)

		one, remoteOne := hold("id-1")
		two, remoteTwo := hold("id-2")
		doneOne := make(chan error, 1)
		doneTwo := make(chan error, 1)

		go func() {
			_, err := Run(context.Background(), coord, addItem(remoteOne), "one")
			doneOne <- err
		}()
		<-one.entered
		go func() {
			_, err := Run(context.Background(), coord, addItem(remoteTwo), "two")
			doneTwo <- err
		}()
		<-two.entered

		items, _ := cache.Get[[]item](c, "items")
		assert.Equal(t, []string{"two*", "one*", "first"}, names(items), "optimistic writes apply in issue order")

		two.release <- nil
		require.NoError(t, <-doneTwo)
		one.release <- nil
		require.NoError(t, <-doneOne)

		items, _ = cache.Get[[]item](c, "items")
		assert.Equal(t, []string{"two", "one", "first"}, names(items))
		assert.Equal(t, "id-2", items[0].Ref.ID())
		assert.Equal(t, "id-1", items[1].Ref.ID())
		assert.True(t, c.IsStale("items"))
		assert.Equal(t, []string{"Item added", "Item added"}, rec.successes)
	})

	t.Run("earlier mutation fails last", func(t *testing.T) {
		c := cache.New()
		original := []item{{Ref: Committed("a"), Name: "first"}}
		c.Set("items", original)
		rec := &recorder{}
		coord := NewCoordinator(c, rec, nil)

		one, remoteOne := hold("id-1")
		two, remoteTwo := hold("id-2")
		doneOne := make(chan error, 1)
		doneTwo := make(chan error, 1)

		go func() {
			_, err := Run(context.Background(), coord, addItem(remoteOne), "one")
			doneOne <- err
		}()
		<-one.entered
		go func() {
			_, err := Run(context.Background(), coord, addItem(remoteTwo), "two")
			doneTwo <- err
		}()
		<-two.entered

		two.release <- nil
		require.NoError(t, <-doneTwo)
		items, _ := cache.Get[[]item](c, "items")
		assert.Equal(t, []string{"two", "one*", "first"}, names(items))
		assert.True(t, c.IsStale("items"))

		one.release <- &apiError{msg: "Server unavailable"}
		require.Error(t, <-doneOne)

		// The last resolution wins: the rollback restores the state taken
		// before "one" was applied until a refetch reconciles with the server.
		items, _ = cache.Get[[]item](c, "items")
		assert.Equal(t, original, items)
		assert.False(t, c.IsStale("items"))
		assert.Equal(t, []string{"Item added"}, rec.successes)
		assert.Equal(t, []string{"Server unavailable"}, rec.failures)
	})
}

func TestRef(t *testing.T) {
	p := NewPending()
	assert.True(t, p.IsPending())
	assert.True(t, IsTempID(p.ID()))

	c, err := p.Commit("abc")
	require.NoError(t, err)
	assert.False(t, c.IsPending())
	assert.Equal(t, "abc", c.ID())
	assert.False(t, IsTempID(c.ID()))

	again, err := c.Commit("other")
	assert.ErrorIs(t, err, ErrCommitted)
	assert.Equal(t, "abc", again.ID())
}
