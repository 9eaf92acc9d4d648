package mutation

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const tempPrefix = "temp-"

// ErrCommitted is returned when committing a ref that is already committed.
var ErrCommitted = errors.New("mutation: ref already committed")

// Ref identifies a record that is either still waiting for the server
// (Pending, carrying a temporary id) or stored (Committed).
type Ref struct {
	id        string
	committed bool
}

// NewPending returns a Pending ref with a fresh temporary id.
func NewPending() Ref {
	return Ref{id: tempPrefix + uuid.NewString()}
}

// Committed wraps a server-assigned id.
func Committed(id string) Ref {
	return Ref{id: id, committed: true}
}

// ID returns the temporary or committed id.
func (r Ref) ID() string { return r.id }

// IsPending reports whether the server has not assigned an id yet.
func (r Ref) IsPending() bool { return !r.committed }

// Commit returns the committed ref that replaces r. A record is committed
// once; committing again fails with ErrCommitted.
func (r Ref) Commit(id string) (Ref, error) {
	if r.committed {
		return r, ErrCommitted
	}
	return Committed(id), nil
}

func (r Ref) String() string {
	if r.committed {
		return r.id
	}
	return "pending(" + r.id + ")"
}

// IsTempID reports whether id was fabricated locally.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}
