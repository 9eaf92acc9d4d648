// Package mutation runs optimistic mutations against the dashboard cache.
//
// A mutation cancels the fetches for the keys it touches, snapshots them,
// applies its optimistic result and then calls the server. A failure restores
// the snapshot; a success marks the touched keys stale so they are refetched.
package mutation

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"projectdash/internal/cache"
)

// FallbackMessage is shown when a failure carries no user message.
const FallbackMessage = "Something went wrong"

// Notifier surfaces the outcome of a mutation to the user.
type Notifier interface {
	Success(msg string)
	Failure(msg string)
}

// UserMessager is implemented by errors that carry text meant for users.
type UserMessager interface {
	UserMessage() string
}

// Message returns the user-visible text for err.
func Message(err error) string {
	var um UserMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return FallbackMessage
}

// Mutation describes one optimistic operation with payload V and server
// result R.
type Mutation[V, R any] struct {
	// Name appears in logs.
	Name string
	// Keys are the cache prefixes cancelled, snapshotted and restored.
	Keys func(v V) []string
	// Apply writes the optimistic result. Values must be replaced, never
	// modified in place.
	Apply func(tx *cache.Txn, v V)
	// Remote performs the server call.
	Remote func(ctx context.Context, v V) (R, error)
	// Reconcile, when set, writes the server's result before invalidation,
	// typically swapping a Pending record for the committed one.
	Reconcile func(tx *cache.Txn, v V, r R)
	// Invalidate returns the prefixes marked stale after success.
	Invalidate func(v V, r R) []string
	// Success is the notification text on success; empty sends none.
	Success string
}

// Coordinator runs mutations against one cache.
type Coordinator struct {
	cache  *cache.Cache
	notify Notifier
	logger *slog.Logger
}

// NewCoordinator returns a coordinator. A nil notifier logs outcomes only.
func NewCoordinator(c *cache.Cache, notify Notifier, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if notify == nil {
		notify = LogNotifier{Logger: logger}
	}
	return &Coordinator{cache: c, notify: notify, logger: logger}
}

// Cache returns the coordinator's cache.
func (c *Coordinator) Cache() *cache.Cache {
	return c.cache
}

// Run executes m with payload v.
func Run[V, R any](ctx context.Context, c *Coordinator, m Mutation[V, R], v V) (R, error) {
	var snap cache.Snapshot
	c.cache.Update(func(tx *cache.Txn) {
		keys := m.Keys(v)
		for _, k := range keys {
			tx.Cancel(k)
		}
		snap = tx.Snapshot(keys...)
		if m.Apply != nil {
			m.Apply(tx, v)
		}
	})

	r, err := m.Remote(ctx, v)
	if err != nil {
		c.cache.Restore(snap)
		c.logger.Warn("mutation rolled back", slog.String("mutation", m.Name), slog.String("error", err.Error()))
		c.notify.Failure(Message(err))
		var zero R
		return zero, err
	}

	if m.Reconcile != nil {
		c.cache.Update(func(tx *cache.Txn) { m.Reconcile(tx, v, r) })
	}
	if m.Invalidate != nil {
		for _, k := range m.Invalidate(v, r) {
			c.cache.Invalidate(k)
		}
	}
	if m.Success != "" {
		c.notify.Success(m.Success)
	}
	return r, nil
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Success(msg string) { n.Logger.Info(msg) }
func (n LogNotifier) Failure(msg string) { n.Logger.Error(msg) }
